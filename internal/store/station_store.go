package store

import (
	"context"

	"starkpay/internal/models"
)

type StationStore struct {
	db DB
}

func NewStationStore(db DB) *StationStore {
	return &StationStore{db: db}
}

func (s *StationStore) GetByID(ctx context.Context, id string) (models.Station, error) {
	var row models.Station
	err := s.db.GetContext(ctx, &row, `
		SELECT id, business_id, name, amount_is_fixed, amount, daily_balance
		FROM stations
		WHERE id = $1
	`, id)
	return row, err
}

func (s *StationStore) IncrementDailyBalance(ctx context.Context, tx Execer, id string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE stations
		SET daily_balance = daily_balance + $1, updated_at = NOW()
		WHERE id = $2
	`, amount, id)
	return err
}

// ResetDailyBalances zeroes every station tally and returns how many changed.
func (s *StationStore) ResetDailyBalances(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stations
		SET daily_balance = 0, updated_at = NOW()
		WHERE daily_balance <> 0
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
