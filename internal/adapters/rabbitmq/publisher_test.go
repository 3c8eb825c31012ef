// internal/adapters/rabbitmq/publisher_test.go
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

type fakeChannel struct {
	declared   []string
	declareErr error
	publishErr error
	published  []amqp.Publishing
	keys       []string
	acks       chan amqp.Confirmation
	ack        bool
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, exchange+":"+key)
	if f.acks != nil {
		f.acks <- amqp.Confirmation{DeliveryTag: uint64(len(f.published)), Ack: f.ack}
	}
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	event := ports.Event{Type: "order.created", OccurredAt: at, Payload: map[string]int{"orderId": 7}}

	tests := []struct {
		name       string
		ack        bool
		publishErr error
		wantErr    bool
	}{
		{name: "Acked by broker", ack: true},
		{name: "Nacked by broker", ack: false, wantErr: true},
		{name: "Publish fails", publishErr: errors.New("channel closed"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{acks: make(chan amqp.Confirmation, 1), ack: tt.ack, publishErr: tt.publishErr}
			p, err := newPublisher(ch, ch.acks)
			if err != nil {
				t.Fatalf("newPublisher() error = %v", err)
			}
			if len(ch.declared) != 1 || ch.declared[0] != "pos.events/topic" {
				t.Errorf("declared = %v", ch.declared)
			}

			err = p.Publish(context.Background(), event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Publish() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.publishErr != nil {
				return
			}
			msg := ch.published[0]
			if ch.keys[0] != "pos.events:order.created" || msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
				t.Errorf("published %s %+v", ch.keys[0], msg)
			}
			var got ports.Event
			if err := json.Unmarshal(msg.Body, &got); err != nil || got.Type != "order.created" || !got.OccurredAt.Equal(at) {
				t.Errorf("body = %s, %v", msg.Body, err)
			}
		})
	}
}

func TestPublisher_ContextCancelledWhileWaitingForConfirm(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, make(chan amqp.Confirmation))
	if err != nil {
		t.Fatalf("newPublisher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, ports.Event{Type: "shift.started"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}

func TestNewPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newPublisher(ch, nil); err == nil {
		t.Fatal("newPublisher() should fail")
	}
	if !ch.closed {
		t.Error("channel should be closed after a failed declare")
	}
}

func TestNopPublisher(t *testing.T) {
	var p ports.EventPublisher = NopPublisher{}
	if err := p.Publish(context.Background(), ports.Event{Type: "order.created"}); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}
