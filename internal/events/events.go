// Package events carries domain events from the ledger engines to the
// notification adapters once the owning database transaction has committed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Type string

const (
	WalletCredited    Type = "wallet.credited"
	WalletDebited     Type = "wallet.debited"
	WalletFunded      Type = "wallet.funded"
	CardDebited       Type = "card.debited"
	WithdrawalSettled Type = "withdrawal.settled"
	WithdrawalFailed  Type = "withdrawal.failed"
	OTPIssued         Type = "otp.issued"
)

type Event struct {
	Type       Type              `json:"type"`
	UserID     string            `json:"user_id"`
	WalletID   string            `json:"wallet_id,omitempty"`
	Reference  string            `json:"reference,omitempty"`
	Amount     int64             `json:"amount,omitempty"`
	Balance    int64             `json:"balance"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NotificationPort delivers one event to one user. Implementations must not
// block for long; the dispatcher calls them sequentially.
type NotificationPort interface {
	Notify(ctx context.Context, userID string, kind Type, payload Event) error
}

type Emitter interface {
	Emit(event Event) bool
}

const DefaultBuffer = 256

type Dispatcher struct {
	ch      chan Event
	ports   []NotificationPort
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(buffer int, ports ...NotificationPort) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Dispatcher{
		ch:      make(chan Event, buffer),
		ports:   ports,
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// Emit queues event without blocking. A full buffer drops the event.
func (d *Dispatcher) Emit(event Event) bool {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.ch <- event:
		return true
	default:
		log.Warn().Str("type", string(event.Type)).Str("reference", event.Reference).Msg("event buffer full; dropping event")
		return false
	}
}

// Run delivers queued events until ctx is cancelled or Close is called, then
// drains what is already buffered.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case event := <-d.ch:
			d.deliver(ctx, event)
		case <-ctx.Done():
			d.drain(context.Background())
			return
		case <-d.done:
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.ch:
			d.deliver(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	for _, port := range d.ports {
		notifyCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := port.Notify(notifyCtx, event.UserID, event.Type, event); err != nil {
			log.Error().Err(err).Str("type", string(event.Type)).Str("user_id", event.UserID).Msg("notification failed")
		}
		cancel()
	}
}
