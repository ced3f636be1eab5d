package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/cart-store/internal/core/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declareErr error
	publishErr error
	declared   []string
	published  []published
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleCart() domain.Cart {
	return domain.Cart{
		{Product: domain.Product{ID: 1, Title: "Tenis", Price: decimal.RequireFromString("139.90")}, Amount: 2},
		{Product: domain.Product{ID: 2, Title: "Bota", Price: decimal.RequireFromString("220.00")}, Amount: 1},
	}
}

func TestNewPublisher_DeclaresExchange(t *testing.T) {
	ch := &fakeChannel{}

	_, err := NewPublisher(ch, 4, quietLogger())

	require.NoError(t, err)
	assert.Equal(t, []string{"cartstore.events:topic"}, ch.declared)
}

func TestNewPublisher_DeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("channel closed")}

	_, err := NewPublisher(ch, 4, quietLogger())

	assert.ErrorContains(t, err, "declare cartstore.events")
}

func TestPublish_Envelope(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, 4, quietLogger())
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, p.Publish(context.Background(), sampleCart()))

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, EventsExchange, msgs[0].exchange)
	assert.Equal(t, CartUpdatedRoutingKey, msgs[0].key)
	assert.Equal(t, "application/json", msgs[0].msg.ContentType)
	assert.Equal(t, amqp.Persistent, msgs[0].msg.DeliveryMode)

	var ev CartUpdatedEvent
	require.NoError(t, json.Unmarshal(msgs[0].msg.Body, &ev))
	_, err = uuid.Parse(ev.EventID)
	assert.NoError(t, err)
	assert.Equal(t, ev.EventID, msgs[0].msg.MessageId)
	assert.Equal(t, CartUpdatedEventType, ev.EventType)
	assert.Equal(t, 3, ev.Count)
	assert.True(t, decimal.RequireFromString("499.80").Equal(ev.Subtotal))
	assert.Len(t, ev.Items, 2)
	assert.True(t, ev.OccurredAt.Equal(p.now()))
}

func TestPublish_EmptyCartHasItemsArray(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, 4, quietLogger())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), nil))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(ch.messages()[0].msg.Body, &raw))
	assert.Equal(t, []any{}, raw["items"])
}

func TestPublish_Error(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("broker gone")}
	p, err := NewPublisher(ch, 4, quietLogger())
	require.NoError(t, err)

	err = p.Publish(context.Background(), sampleCart())

	assert.ErrorContains(t, err, "publish cart.updated.v1")
}

func TestEnqueue_DropsWhenFull(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, 1, quietLogger())
	require.NoError(t, err)

	p.Enqueue(sampleCart())
	p.Enqueue(sampleCart())

	assert.Len(t, p.queue, 1)
}

func TestRun_PublishesAndFlushes(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, 8, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Enqueue(sampleCart())
	p.Enqueue(sampleCart()[:1])
	require.Eventually(t, func() bool { return len(ch.messages()) == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	p.Enqueue(domain.Cart{})
	require.NoError(t, <-done)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
