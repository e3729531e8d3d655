package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var errLedgerTarget = errors.New("ledger entry must name exactly one of wallet or card")

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID            string
	TransactionID string
	WalletID      *string
	CardID        *string
	Amount        int64
	Description   string
}

// InsertEntries writes every leg of a movement in one statement.
func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	if len(entries) == 0 {
		return nil
	}
	var query strings.Builder
	query.WriteString("INSERT INTO ledger_entries (id, transaction_id, wallet_id, card_id, amount, description) VALUES ")
	args := make([]any, 0, len(entries)*6)
	for i, entry := range entries {
		if (entry.WalletID == nil) == (entry.CardID == nil) {
			return fmt.Errorf("%w: %s", errLedgerTarget, entry.Description)
		}
		if i > 0 {
			query.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&query, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, entry.ID, entry.TransactionID, entry.WalletID, entry.CardID, entry.Amount, entry.Description)
	}
	_, err := tx.ExecContext(ctx, query.String(), args...)
	return err
}
