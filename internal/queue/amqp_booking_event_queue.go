package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"event-ticketing/internal/model"
	"event-ticketing/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultAMQPQueueName = "booking.events"

// AMQPBookingEventQueue publishes to a durable queue on the default exchange.
type AMQPBookingEventQueue struct {
	conn      *amqp.Connection
	queueName string
	prefetch  int

	mu    sync.Mutex
	pubCh *amqp.Channel

	log *zap.Logger
}

func NewAMQPBookingEventQueue(url string, queueName string, prefetch int) (*AMQPBookingEventQueue, error) {
	if queueName == "" {
		queueName = DefaultAMQPQueueName
	}
	if prefetch <= 0 {
		prefetch = 50
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	q := &AMQPBookingEventQueue{
		conn:      conn,
		queueName: queueName,
		prefetch:  prefetch,
		log:       logger.WithComponent("mq"),
	}

	ch, err := q.openChannel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	q.pubCh = ch

	return q, nil
}

// openChannel opens a channel and declares the queue (idempotent, durable).
func (q *AMQPBookingEventQueue) openChannel() (*amqp.Channel, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(q.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	return ch, nil
}

func (q *AMQPBookingEventQueue) Publish(ctx context.Context, event *model.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	// amqp.Channel 不可併發 publish
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.pubCh.PublishWithContext(ctx, "", q.queueName, false, false, pub); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (q *AMQPBookingEventQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	ch, err := q.openChannel()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		q.log.Warn("set QoS failed", zap.Error(err))
	}

	msgs, err := ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer ch.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					q.log.Warn("amqp deliveries channel closed")
					return
				}

				var event model.BookingEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					q.log.Warn("unmarshal booking event failed", zap.String("message_id", d.MessageId), zap.Error(err))
					// reject, do not requeue to avoid tight loops
					_ = d.Nack(false, false)
					continue
				}

				msg := d
				delivery := Delivery{
					Data: &event,
					Ack: func() {
						if err := msg.Ack(false); err != nil {
							q.log.Error("amqp ack failed", zap.Error(err))
						}
					},
					Nack: func(requeue bool) {
						if err := msg.Nack(false, requeue); err != nil {
							q.log.Error("amqp nack failed", zap.Error(err))
						}
					},
				}

				select {
				case out <- delivery:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *AMQPBookingEventQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pubCh != nil {
		_ = q.pubCh.Close()
	}
	return q.conn.Close()
}
