package store

import (
	"context"

	"starkpay/internal/models"
)

type WebhookStore struct {
	db DB
}

func NewWebhookStore(db DB) *WebhookStore {
	return &WebhookStore{db: db}
}

// Log keeps the raw callback body before it is parsed.
func (s *WebhookStore) Log(ctx context.Context, id string, source models.Processor, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, source, payload)
		VALUES ($1, $2, $3::jsonb)
	`, id, source, string(payload))
	return err
}
