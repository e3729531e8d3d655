package store

import (
	"context"
	"time"

	"starkpay/internal/models"
)

type WalletStore struct {
	db DB
}

const walletColumns = `id, user_id, business_id, balance, total_transaction_amount_today, latest_transaction_timestamp`

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, id string, userID, businessID *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, business_id)
		VALUES ($1, $2, $3)
	`, id, userID, businessID)
	return err
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	return row, err
}

// GetByUser returns the user's primary (oldest) wallet.
func (s *WalletStore) GetByUser(ctx context.Context, userID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE user_id = $1
		ORDER BY created_at
		LIMIT 1
	`, userID)
	return row, err
}

func (s *WalletStore) GetByBusiness(ctx context.Context, businessID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE business_id = $1
		ORDER BY created_at
		LIMIT 1
	`, businessID)
	return row, err
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID)
	return row, err
}

func (s *WalletStore) Credit(ctx context.Context, tx Execer, walletID string, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
	`, amount, walletID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Debit only succeeds while the balance covers amount; zero rows affected
// means the wallet would have gone negative.
func (s *WalletStore) Debit(ctx context.Context, tx Execer, walletID string, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
	`, amount, walletID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DebitWithDailyCounter debits a card-tap payment and stores the already
// recomputed daily counter together with the debit time.
func (s *WalletStore) DebitWithDailyCounter(ctx context.Context, tx Execer, walletID string, amount, counter int64, at time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance - $1,
		    total_transaction_amount_today = $2,
		    latest_transaction_timestamp = $3,
		    updated_at = NOW()
		WHERE id = $4 AND balance >= $1
	`, amount, counter, at, walletID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
