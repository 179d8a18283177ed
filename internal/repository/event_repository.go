package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-ticketing/internal/model"
	apperrors "event-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

// EventStore is the storage-agnostic part of the event repository.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id int) (*model.Event, error)
	Update(ctx context.Context, cmd model.UpdateEventCommand) (*model.Event, error)
	Delete(ctx context.Context, id int) error
}

type EventRepository interface {
	EventStore

	// Transaction methods
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error)
	DecrementAvailableSeats(ctx context.Context, tx pgx.Tx, id int, seats int) (int, error)
	IncrementAvailableSeats(ctx context.Context, tx pgx.Tx, id int, seats int) (int, error)
}

type EventRepositoryImpl struct {
	db DB
}

func NewEventRepository(db DB) EventRepository {
	return &EventRepositoryImpl{
		db: db,
	}
}

const eventColumns = `id, title, description, event_date, location, total_seats,
		available_seats, price, image_url, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.EventDate,
		&event.Location,
		&event.TotalSeats,
		&event.AvailableSeats,
		&event.Price,
		&event.ImageURL,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := event.CheckSeats(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO events (
			title, description, event_date, location, total_seats, available_seats, price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + eventColumns

	created, err := scanEvent(r.db.QueryRow(ctx, query,
		event.Title, event.Description, event.EventDate, event.Location,
		event.TotalSeats, event.AvailableSeats, event.Price, event.ImageURL,
	))
	if err != nil {
		return nil, classify("events.Create", err)
	}

	return created, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY event_date ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classify("events.List", err)
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, classify("events.List", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("events.List", err)
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`

	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, classify("events.FindByID", err)
	}

	return event, nil
}

// FindByIDForUpdate locks the event row for the rest of the transaction.
func (r *EventRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
		FOR UPDATE
	`

	event, err := scanEvent(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, classify("events.FindByIDForUpdate", err)
	}

	return event, nil
}

// Update edits the descriptive fields; seat counters are never touched here.
func (r *EventRepositoryImpl) Update(ctx context.Context, cmd model.UpdateEventCommand) (*model.Event, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if cmd.Title != nil {
		add("title", *cmd.Title)
	}
	if cmd.Description != nil {
		add("description", *cmd.Description)
	}
	if cmd.EventDate != nil {
		add("event_date", cmd.EventDate.UTC())
	}
	if cmd.Location != nil {
		add("location", *cmd.Location)
	}
	if cmd.Price != nil {
		add("price", *cmd.Price)
	}
	if cmd.ImageURL != nil {
		add("image_url", *cmd.ImageURL)
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	// add updated_at
	add("updated_at", time.Now().UTC())

	// add id
	args = append(args, cmd.ID)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, eventColumns)

	event, err := scanEvent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, classify("events.Update", err)
	}

	return event, nil
}

// Delete removes the event; bookings go with it (ON DELETE CASCADE).
func (r *EventRepositoryImpl) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return classify("events.Delete", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// DecrementAvailableSeats takes seats only while enough remain, in a single
// conditional statement. It returns the new available count.
func (r *EventRepositoryImpl) DecrementAvailableSeats(ctx context.Context, tx pgx.Tx, id int, seats int) (int, error) {
	query := `
		UPDATE events
		SET available_seats = available_seats - $1, updated_at = $2
		WHERE id = $3 AND available_seats >= $1
		RETURNING available_seats
	`

	var available int
	err := tx.QueryRow(ctx, query, seats, time.Now().UTC(), id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrInsufficientSeats
		}
		return 0, classify("events.DecrementAvailableSeats", err)
	}

	return available, nil
}

// IncrementAvailableSeats gives seats back without ever exceeding total_seats.
func (r *EventRepositoryImpl) IncrementAvailableSeats(ctx context.Context, tx pgx.Tx, id int, seats int) (int, error) {
	query := `
		UPDATE events
		SET available_seats = available_seats + $1, updated_at = $2
		WHERE id = $3 AND available_seats + $1 <= total_seats
		RETURNING available_seats
	`

	var available int
	err := tx.QueryRow(ctx, query, seats, time.Now().UTC(), id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrConstraintViolation
		}
		return 0, classify("events.IncrementAvailableSeats", err)
	}

	return available, nil
}
