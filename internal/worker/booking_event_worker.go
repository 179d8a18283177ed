package worker

import (
	"context"

	"event-ticketing/internal/model"
	"event-ticketing/internal/queue"
	"event-ticketing/pkg/logger"

	"go.uber.org/zap"
)

// BookingEventHandler reacts to a committed booking change.
type BookingEventHandler interface {
	Handle(ctx context.Context, event *model.BookingEvent) error
}

type BookingEventWorker interface {
	// 訂閱事件隊列；回傳的 channel 在所有訊息處理完、ctx 結束後關閉
	Start(ctx context.Context) (<-chan struct{}, error)
}

type BookingEventWorkerImpl struct {
	handler BookingEventHandler
	queue   queue.BookingEventQueue
	log     *zap.Logger
}

func NewBookingEventWorker(handler BookingEventHandler, queue queue.BookingEventQueue) BookingEventWorker {
	return &BookingEventWorkerImpl{
		handler: handler,
		queue:   queue,
		log:     logger.WithComponent("worker"),
	}
}

func (w *BookingEventWorkerImpl) Start(ctx context.Context) (<-chan struct{}, error) {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			if err := w.handler.Handle(ctx, msg.Data); err != nil {
				// 交給 queue 延遲重試
				w.log.Warn("handle booking event failed",
					zap.String("event_id", msg.Data.ID),
					zap.String("type", msg.Data.Type),
					zap.Error(err))
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
	}()
	return done, nil
}
