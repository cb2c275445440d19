package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/apnishop-api/internal/model"
)

const idempotencyTTL = 24 * time.Hour

type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type Notifier interface {
	SendOrderEvent(ctx context.Context, event model.OrderEvent, order *model.Order, user *model.User) error
}

// Deduper remembers which events have been handled.
type Deduper interface {
	Seen(ctx context.Context, eventID uuid.UUID) (bool, error)
	Mark(ctx context.Context, eventID uuid.UUID) error
}

type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func dedupKey(eventID uuid.UUID) string { return "order_event_processed:" + eventID.String() }

func (d *RedisDeduper) Seen(ctx context.Context, eventID uuid.UUID) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(eventID)).Result()
	return n > 0, err
}

func (d *RedisDeduper) Mark(ctx context.Context, eventID uuid.UUID) error {
	return d.client.Set(ctx, dedupKey(eventID), "1", idempotencyTTL).Err()
}

// NotificationWorker emails customers about their orders as events arrive.
type NotificationWorker struct {
	channel  *amqp.Channel
	orders   OrderReader
	users    UserReader
	notifier Notifier
	dedup    Deduper
	log      *slog.Logger
	done     chan struct{}
}

func NewNotificationWorker(
	ch *amqp.Channel,
	orders OrderReader,
	users UserReader,
	notifier Notifier,
	dedup Deduper,
	log *slog.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		channel:  ch,
		orders:   orders,
		users:    users,
		notifier: notifier,
		dedup:    dedup,
		log:      log,
		done:     make(chan struct{}),
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	if err := w.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	msgs, err := w.channel.Consume(OrderEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *NotificationWorker) Stop() { close(w.done) }

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event model.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		w.log.Error("unmarshal order event", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("event_id", event.EventID, "type", event.Type, "order_id", event.OrderID)

	seen, err := w.dedup.Seen(ctx, event.EventID)
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if seen {
		log.Info("event already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.notify(ctx, event); err != nil {
		log.Error("notify customer failed", "error", err)
		_ = msg.Nack(false, false) // dead-lettered
		return
	}

	if err := w.dedup.Mark(ctx, event.EventID); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("customer notified")
}

func (w *NotificationWorker) notify(ctx context.Context, event model.OrderEvent) error {
	order, err := w.orders.GetByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", event.OrderID)
	}

	user, err := w.users.GetByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", order.UserID)
	}

	return w.notifier.SendOrderEvent(ctx, event, order, user)
}
