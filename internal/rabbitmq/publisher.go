// Package rabbitmq publishes notification events to a durable topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"starkpay/internal/events"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  Channel
	exchange string
	reopen   func() (Channel, error)
}

// Dial connects to the broker and declares exchange.
func Dial(rawURL, exchange string) (*Publisher, error) {
	cleanURL, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p := NewPublisher(ch, exchange)
	p.conn = conn
	p.reopen = func() (Channel, error) { return conn.Channel() }
	if err := p.declare(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange}
}

func (p *Publisher) declare() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	return nil
}

// Notify publishes payload with the event type as routing key.
func (p *Publisher) Notify(ctx context.Context, userID string, kind events.Type, payload events.Event) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    payload.OccurredAt,
		Headers:      amqp.Table{"user_id": userID},
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, string(kind), false, false, msg)
	if err == nil {
		return nil
	}
	if p.reopen == nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}

	log.Warn().Err(err).Str("routing_key", string(kind)).Msg("publish failed; reopening channel")
	ch, chErr := p.reopen()
	if chErr != nil {
		return fmt.Errorf("reopen channel: %w", errors.Join(err, chErr))
	}
	_ = p.channel.Close()
	p.channel = ch
	if err := p.declare(); err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, string(kind), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
