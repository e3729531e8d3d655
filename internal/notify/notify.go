// Package notify holds the notification port used when no broker is reachable.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"starkpay/internal/events"
)

// LogNotifier writes every event to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID string, kind events.Type, payload events.Event) error {
	log.Info().
		Str("type", string(kind)).
		Str("user_id", userID).
		Str("wallet_id", payload.WalletID).
		Str("reference", payload.Reference).
		Int64("amount", payload.Amount).
		Int64("balance", payload.Balance).
		Msg("notification")
	return nil
}
