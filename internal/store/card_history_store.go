package store

import (
	"context"
	"time"

	"starkpay/internal/models"
)

type CardHistoryStore struct {
	db DB
}

type CardHistoryEntry struct {
	ID          string            `db:"id" json:"id"`
	CardID      string            `db:"card_id" json:"card_id"`
	CreatedByID string            `db:"created_by_id" json:"created_by_id"`
	Action      models.CardAction `db:"action" json:"action"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

func NewCardHistoryStore(db DB) *CardHistoryStore {
	return &CardHistoryStore{db: db}
}

// Append is the only write; history rows are never updated.
func (s *CardHistoryStore) Append(ctx context.Context, tx Execer, id, cardID, actorID string, action models.CardAction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO card_history (id, card_id, created_by_id, action)
		VALUES ($1, $2, $3, $4)
	`, id, cardID, actorID, action)
	return err
}

func (s *CardHistoryStore) ListByCard(ctx context.Context, cardID string) ([]CardHistoryEntry, error) {
	var rows []CardHistoryEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, card_id, created_by_id, action, created_at
		FROM card_history
		WHERE card_id = $1
		ORDER BY created_at
	`, cardID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
