package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Publisher fans conversation events out to external consumers (the
// surrounding console's notification workers). Publishing is best-effort:
// callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Envelope) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

// NewAMQP connects to the broker and declares a durable topic exchange.
func NewAMQP(url, exchange string) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{conn: conn, exchange: exchange}, nil
}

func (p *rmqPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.Meta.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err == nil {
		log.Printf("[Events] published %s to %s", key, p.exchange)
	}
	return err
}

func (p *rmqPublisher) Close() error {
	return p.conn.Close()
}
