package store

import (
	"context"

	"starkpay/internal/models"
)

type BusinessStore struct {
	db DB
}

func NewBusinessStore(db DB) *BusinessStore {
	return &BusinessStore{db: db}
}

func (s *BusinessStore) GetByID(ctx context.Context, id string) (models.Business, error) {
	var row models.Business
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, service_fee_percentage::text AS service_fee_percentage, bank_account_id
		FROM businesses
		WHERE id = $1
	`, id)
	return row, err
}

// ActiveProcessor reads the funding processor from the single configuration row.
func (s *BusinessStore) ActiveProcessor(ctx context.Context) (models.Processor, error) {
	var processor models.Processor
	err := s.db.GetContext(ctx, &processor, `SELECT payment_processor FROM configuration ORDER BY id LIMIT 1`)
	return processor, err
}
