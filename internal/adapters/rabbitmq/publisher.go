// internal/adapters/rabbitmq/publisher.go
package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

var logger = loggo.GetLogger("pos.rabbitmq")

// Exchange is the durable topic exchange every domain event goes to.
const Exchange = "pos.events"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends events as persistent JSON messages and waits for the
// broker confirm of each one.
type Publisher struct {
	conn *amqp.Connection
	ch   channel
	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Annotate(err, "dialing rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Annotate(err, "opening channel")
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Annotate(err, "enabling publisher confirms")
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p, err := newPublisher(ch, acks)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, acks <-chan amqp.Confirmation) (*Publisher, error) {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, errors.Annotatef(err, "declaring exchange %s", Exchange)
	}
	return &Publisher{ch: ch, acks: acks}, nil
}

// Publish routes the event by its type, e.g. order.created or shift.expired.
func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Trace(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, Exchange, event.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return errors.Annotatef(err, "publishing %s", event.Type)
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return errors.New("rabbitmq channel closed before confirm")
		}
		if !conf.Ack {
			return errors.Errorf("broker rejected %s event", event.Type)
		}
		logger.Debugf("published %s (delivery tag %d)", event.Type, conf.DeliveryTag)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping reports whether the connection is still open.
func (p *Publisher) Ping(context.Context) error {
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NopPublisher drops every event. It stands in when RabbitMQ is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, event ports.Event) error {
	logger.Tracef("event %s not published: no broker configured", event.Type)
	return nil
}
