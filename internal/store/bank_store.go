package store

import (
	"context"

	"starkpay/internal/models"
)

type BankStore struct {
	db DB
}

func NewBankStore(db DB) *BankStore {
	return &BankStore{db: db}
}

func (s *BankStore) GetBySlug(ctx context.Context, slug string) (models.Bank, error) {
	var row models.Bank
	err := s.db.GetContext(ctx, &row, `SELECT id, name, code, slug, ussd FROM banks WHERE slug = $1`, slug)
	return row, err
}

func (s *BankStore) List(ctx context.Context) ([]models.Bank, error) {
	var rows []models.Bank
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, code, slug, ussd FROM banks ORDER BY name`); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetAccount returns a payout account with its bank's code and name.
func (s *BankStore) GetAccount(ctx context.Context, id string) (models.BankAccount, error) {
	var row models.BankAccount
	err := s.db.GetContext(ctx, &row, `
		SELECT ba.id, ba.number, ba.name, b.code AS bank_code, b.name AS bank_name
		FROM bank_accounts ba
		JOIN banks b ON b.id = ba.bank_id
		WHERE ba.id = $1
	`, id)
	return row, err
}
