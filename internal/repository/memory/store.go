// Package memory is an in-process store with the same semantics as the
// postgres repositories. Reserve, Cancel and Delete hold a per-event lock
// for their whole critical section, so seat updates on unrelated events do
// not wait for each other. The maps themselves are guarded by one RWMutex
// that is only ever taken after an event lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"event-ticketing/internal/model"
	"event-ticketing/internal/repository"
	apperrors "event-ticketing/pkg/app_errors"
)

type Store struct {
	mu sync.RWMutex

	// eventLocks 相當於 postgres 的 SELECT ... FOR UPDATE
	locksMu    sync.Mutex
	eventLocks map[int]*sync.Mutex

	events   map[int]*model.Event
	bookings map[int]*model.Booking
	users    map[int]*model.UserProfile

	nextEventID   int
	nextBookingID int

	now func() time.Time
}

func New() *Store {
	return &Store{
		events:   make(map[int]*model.Event),
		bookings: make(map[int]*model.Booking),
		users:    make(map[int]*model.UserProfile),
		now:      func() time.Time { return time.Now().UTC() },

		eventLocks: make(map[int]*sync.Mutex),
	}
}

// lockEvent blocks until the caller owns the event's row lock. Locks exist
// only for live events; ok is false when the event was never created or is
// already deleted.
func (s *Store) lockEvent(id int) (unlock func(), ok bool) {
	s.locksMu.Lock()
	l, ok := s.eventLocks[id]
	s.locksMu.Unlock()
	if !ok {
		return nil, false
	}

	l.Lock()
	return l.Unlock, true
}

func (s *Store) setEventLock(id int, l *sync.Mutex) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if l == nil {
		// event IDs are never reused, so a caller still waiting on the old
		// lock only ever sees ErrEventNotFound
		delete(s.eventLocks, id)
		return
	}
	s.eventLocks[id] = l
}

func (s *Store) Events() repository.EventStore {
	return eventStore{s}
}

func (s *Store) Bookings() repository.BookingLedger {
	return bookingLedger{s}
}

func (s *Store) Users() repository.UserRepository {
	return userStore{s}
}

func (s *Store) Reservations() repository.ReservationStore {
	return reservationStore{s}
}

// copies keep callers from mutating stored rows

func copyEvent(e *model.Event) *model.Event {
	c := *e
	return &c
}

func (s *Store) copyBooking(b *model.Booking, withEvent bool) *model.Booking {
	c := *b
	c.Event = nil
	if withEvent {
		if e, ok := s.events[b.EventID]; ok {
			c.Event = copyEvent(e)
		}
	}
	return &c
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.ErrStoreUnavailable
	}
	return nil
}

/* events */

type eventStore struct{ s *Store }

func (r eventStore) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := event.CheckSeats(); err != nil {
		return nil, err
	}
	if event.Price < 0 {
		return nil, apperrors.ErrConstraintViolation
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	created := copyEvent(event)
	created.ID = s.nextEventID
	created.EventDate = created.EventDate.UTC()
	created.CreatedAt = s.now()
	created.UpdatedAt = created.CreatedAt
	s.events[created.ID] = created
	s.setEventLock(created.ID, &sync.Mutex{})

	return copyEvent(created), nil
}

func (r eventStore) List(ctx context.Context) ([]*model.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, copyEvent(e))
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (r eventStore) FindByID(ctx context.Context, id int) (*model.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (r eventStore) Update(ctx context.Context, cmd model.UpdateEventCommand) (*model.Event, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if cmd.IsEmpty() {
		return nil, apperrors.ErrInvalidInput
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[cmd.ID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if cmd.Price != nil && *cmd.Price < 0 {
		return nil, apperrors.ErrConstraintViolation
	}

	if cmd.Title != nil {
		e.Title = *cmd.Title
	}
	if cmd.Description != nil {
		e.Description = *cmd.Description
	}
	if cmd.EventDate != nil {
		e.EventDate = cmd.EventDate.UTC()
	}
	if cmd.Location != nil {
		e.Location = *cmd.Location
	}
	if cmd.Price != nil {
		e.Price = *cmd.Price
	}
	if cmd.ImageURL != nil {
		e.ImageURL = *cmd.ImageURL
	}
	e.UpdatedAt = s.now()

	return copyEvent(e), nil
}

// Delete removes the event and every booking on it.
func (r eventStore) Delete(ctx context.Context, id int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s := r.s
	unlock, ok := s.lockEvent(id)
	if !ok {
		return apperrors.ErrEventNotFound
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return apperrors.ErrEventNotFound
	}
	delete(s.events, id)
	for bid, b := range s.bookings {
		if b.EventID == id {
			delete(s.bookings, bid)
		}
	}
	s.setEventLock(id, nil)
	return nil
}

/* bookings */

type bookingLedger struct{ s *Store }

func (r bookingLedger) FindByID(ctx context.Context, id int) (*model.Booking, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	return s.copyBooking(b, false), nil
}

func (r bookingLedger) ListByUser(ctx context.Context, userID int) ([]*model.Booking, error) {
	return r.list(ctx, func(b *model.Booking) bool { return b.UserID == userID })
}

func (r bookingLedger) List(ctx context.Context) ([]*model.Booking, error) {
	return r.list(ctx, func(*model.Booking) bool { return true })
}

func (r bookingLedger) list(ctx context.Context, match func(*model.Booking) bool) ([]*model.Booking, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]*model.Booking, 0)
	for _, b := range s.bookings {
		if match(b) {
			bookings = append(bookings, s.copyBooking(b, true))
		}
	}
	// newest first
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID > bookings[j].ID
	})
	return bookings, nil
}

func (r bookingLedger) ConfirmedSeats(ctx context.Context, eventID int) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}

	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, b := range s.bookings {
		if b.EventID == eventID && b.BookingStatus == model.BookingStatusConfirmed {
			total += b.SeatsBooked
		}
	}
	return total, nil
}

/* users */

type userStore struct{ s *Store }

func (r userStore) Upsert(ctx context.Context, user *model.UserProfile) (*model.UserProfile, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, ok := s.users[user.ID]
	if !ok {
		saved = &model.UserProfile{ID: user.ID, CreatedAt: s.now()}
		s.users[user.ID] = saved
	}
	saved.Email = user.Email
	saved.FullName = user.FullName
	saved.IsAdmin = user.IsAdmin

	c := *saved
	return &c, nil
}

func (r userStore) FindByID(ctx context.Context, id int) (*model.UserProfile, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

/* reservations */

type reservationStore struct{ s *Store }

func (r reservationStore) Reserve(ctx context.Context, userID int, eventID int, seats int) (*model.Booking, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if seats <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	s := r.s
	unlock, ok := s.lockEvent(eventID)
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	defer unlock()

	// 持有 event lock 時，這個活動的座位與有效訂位不會被其他人改動
	if err := s.checkReserve(userID, eventID, seats); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.events[eventID]
	e.AvailableSeats -= seats
	e.UpdatedAt = s.now()

	s.nextBookingID++
	booking := &model.Booking{
		ID:            s.nextBookingID,
		UserID:        userID,
		EventID:       eventID,
		SeatsBooked:   seats,
		BookingStatus: model.BookingStatusConfirmed,
		CreatedAt:     s.now(),
	}
	s.bookings[booking.ID] = booking

	return s.copyBooking(booking, false), nil
}

// checkReserve must run with the event lock held.
func (s *Store) checkReserve(userID int, eventID int, seats int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	for _, b := range s.bookings {
		if b.UserID == userID && b.EventID == eventID && b.BookingStatus == model.BookingStatusConfirmed {
			return apperrors.ErrDuplicateActiveBooking
		}
	}
	if e.AvailableSeats < seats {
		return apperrors.ErrInsufficientSeats
	}
	return nil
}

func (r reservationStore) Cancel(ctx context.Context, bookingID int) (*model.Booking, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.RLock()
	b, ok := s.bookings[bookingID]
	var eventID int
	if ok {
		eventID = b.EventID
	}
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}

	unlock, ok := s.lockEvent(eventID)
	if !ok {
		// 活動已刪除，訂位也跟著刪了
		return nil, apperrors.ErrBookingNotFound
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// 等 lock 期間可能被刪除或取消，重新讀取
	b, ok = s.bookings[bookingID]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	if b.IsCancelled() {
		return s.copyBooking(b, false), apperrors.ErrAlreadyCancelled
	}

	e, ok := s.events[b.EventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if e.AvailableSeats+b.SeatsBooked > e.TotalSeats {
		return nil, apperrors.ErrConstraintViolation
	}

	b.BookingStatus = model.BookingStatusCancelled
	e.AvailableSeats += b.SeatsBooked
	e.UpdatedAt = s.now()

	return s.copyBooking(b, false), nil
}

func (r reservationStore) Availability(ctx context.Context, eventID int) (model.Availability, error) {
	e, err := eventStore(r).FindByID(ctx, eventID)
	if err != nil {
		return model.Availability{}, err
	}
	return e.Availability(), nil
}
