package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/cart-store/internal/core/domain"
)

const (
	EventsExchange        = "cartstore.events"
	CartUpdatedRoutingKey = "cart.updated.v1"
	CartUpdatedEventType  = "CartUpdated"

	publishTimeout = 3 * time.Second
)

type CartUpdatedEvent struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Items      domain.Cart     `json:"items"`
	Count      int             `json:"count"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func NewCartUpdatedEvent(c domain.Cart, now time.Time) CartUpdatedEvent {
	if c == nil {
		c = domain.Cart{}
	}
	return CartUpdatedEvent{
		EventID:    uuid.NewString(),
		EventType:  CartUpdatedEventType,
		OccurredAt: now.UTC(),
		Items:      c,
		Count:      c.Count(),
		Subtotal:   c.Subtotal(),
	}
}

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards committed carts to the events exchange. Enqueue never
// blocks; Run does the network work.
type Publisher struct {
	ch    Channel
	queue chan domain.Cart
	log   logrus.FieldLogger
	now   func() time.Time
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}

func NewPublisher(ch Channel, queueSize int, log logrus.FieldLogger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Publisher{
		ch:    ch,
		queue: make(chan domain.Cart, queueSize),
		log:   log.WithField("component", "events"),
		now:   time.Now,
	}, nil
}

// Enqueue is meant to be passed to CartService.Subscribe.
func (p *Publisher) Enqueue(c domain.Cart) {
	select {
	case p.queue <- c:
	default:
		p.log.WithField("count", c.Count()).Warn("event queue full, dropping cart update")
	}
}

// Run publishes queued carts until ctx is done, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case c := <-p.queue:
			p.publishLogged(ctx, c)
		case <-ctx.Done():
			p.flush()
			return nil
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	for {
		select {
		case c := <-p.queue:
			p.publishLogged(ctx, c)
		default:
			return
		}
	}
}

func (p *Publisher) publishLogged(ctx context.Context, c domain.Cart) {
	if err := p.Publish(ctx, c); err != nil {
		p.log.WithError(err).Error("failed to publish cart update")
	}
}

func (p *Publisher) Publish(ctx context.Context, c domain.Cart) error {
	ev := NewCartUpdatedEvent(c, p.now())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", CartUpdatedEventType, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, EventsExchange, CartUpdatedRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.EventType,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", CartUpdatedRoutingKey, err)
	}
	p.log.WithField("event_id", ev.EventID).Debug("cart update published")
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
