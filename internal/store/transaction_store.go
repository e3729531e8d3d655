package store

import (
	"context"
	"time"

	"starkpay/internal/models"
)

type TransactionStore struct {
	db DB
}

const transactionColumns = `id, transaction_reference, type, status, amount, fee, processor, processor_status,
	processor_trx_id, wallet_id, card_id, created_by_id, recipient_id, business_id, station_id, narration, created_at`

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, trx models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, transaction_reference, type, status, amount, fee, processor, processor_status,
			processor_trx_id, wallet_id, card_id, created_by_id, recipient_id, business_id, station_id, narration
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, trx.ID, trx.TransactionReference, trx.Type, trx.Status, trx.Amount, trx.Fee, trx.Processor, trx.ProcessorStatus,
		trx.ProcessorTrxID, trx.WalletID, trx.CardID, trx.CreatedByID, trx.RecipientID, trx.BusinessID, trx.StationID, trx.Narration)
	return err
}

func (s *TransactionStore) GetByReference(ctx context.Context, reference string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_reference = $1`, reference)
	return row, err
}

func (s *TransactionStore) GetByReferenceForUpdate(ctx context.Context, tx Getter, reference string) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_reference = $1
		FOR UPDATE
	`, reference)
	return row, err
}

// Settle moves a PENDING transaction to a terminal status. It reports zero
// rows when the transaction was already settled, which callers treat as a
// replay.
func (s *TransactionStore) Settle(ctx context.Context, tx Execer, input SettleInput) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1,
		    processor_status = COALESCE($2, processor_status),
		    processor_trx_id = COALESCE($3, processor_trx_id),
		    fee = COALESCE($4, fee),
		    updated_at = NOW()
		WHERE id = $5 AND status = 'PENDING'
	`, input.Status, input.ProcessorStatus, input.ProcessorTrxID, input.Fee, input.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumBusinessSince totals amounts attributed to a business from since on.
func (s *TransactionStore) SumBusinessSince(ctx context.Context, businessID string, since time.Time) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE business_id = $1 AND created_at >= $2
	`, businessID, since)
	return sum, err
}

func (s *TransactionStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type SettleInput struct {
	ID              string
	Status          models.TransactionStatus
	ProcessorStatus *string
	ProcessorTrxID  *string
	Fee             *int64
}
