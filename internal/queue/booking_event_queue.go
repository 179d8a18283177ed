package queue

import (
	"context"
	"time"

	"event-ticketing/internal/model"
	"event-ticketing/pkg/logger"

	"go.uber.org/zap"
)

// DefaultRequeueDelay 是記憶體隊列 Nack(true) 後重新投遞前的等待時間
const DefaultRequeueDelay = 200 * time.Millisecond

type Delivery struct {
	Data *model.BookingEvent
	Ack  func()
	Nack func(requeue bool)
}

// BookingEventQueue carries booking lifecycle events from the engine to the workers.
type BookingEventQueue interface {
	// 發送事件到隊列
	Publish(ctx context.Context, event *model.BookingEvent) error
	// 訂閱事件隊列，ctx 結束時 channel 關閉
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryBookingEventQueue struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch           chan *model.BookingEvent
	requeueDelay time.Duration
	log          *zap.Logger
}

func NewMemoryBookingEventQueue(bufferSize int) BookingEventQueue {
	return NewMemoryBookingEventQueueWithDelay(bufferSize, DefaultRequeueDelay)
}

func NewMemoryBookingEventQueueWithDelay(bufferSize int, requeueDelay time.Duration) BookingEventQueue {
	if requeueDelay < 0 {
		requeueDelay = 0
	}
	return &MemoryBookingEventQueue{
		ch:           make(chan *model.BookingEvent, bufferSize),
		requeueDelay: requeueDelay,
		log:          logger.WithComponent("mq"),
	}
}

// requeue 延遲後放回隊列，避免失敗的事件讓 worker 空轉；滿了就丟棄
func (q *MemoryBookingEventQueue) requeue(event *model.BookingEvent) {
	time.AfterFunc(q.requeueDelay, func() {
		select {
		case q.ch <- event:
		default:
			q.log.Warn("memory queue full, dropping requeued booking event",
				zap.String("event_id", event.ID),
				zap.Int("booking_id", event.Booking.ID))
		}
	})
}

func (q *MemoryBookingEventQueue) Publish(ctx context.Context, event *model.BookingEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryBookingEventQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: event,
					Ack:  func() { /* 記憶體版不用做特別動作 */ },
					Nack: func(requeue bool) {
						if requeue {
							q.requeue(event)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
