package store

import (
	"context"

	"starkpay/internal/models"
)

type CardStore struct {
	db DB
}

const cardColumns = `id, nfc_card_number, hash, user_id, wallet_id, name, active, balance, created_by_id`

func NewCardStore(db DB) *CardStore {
	return &CardStore{db: db}
}

// Create inserts an unbound card. The public number comes from a sequence so
// numbers stay contiguous across concurrent creations.
func (s *CardStore) Create(ctx context.Context, tx Getter, id, hash, createdByID string) (models.Card, error) {
	var row models.Card
	err := tx.GetContext(ctx, &row, `
		INSERT INTO cards (id, nfc_card_number, hash, created_by_id)
		VALUES ($1, nextval('card_number_seq')::text, $2, $3)
		RETURNING `+cardColumns, id, hash, createdByID)
	return row, err
}

func (s *CardStore) GetByID(ctx context.Context, id string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = $1 AND deleted_at IS NULL`, id)
	return row, err
}

func (s *CardStore) GetByNumber(ctx context.Context, number string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE nfc_card_number = $1 AND deleted_at IS NULL`, number)
	return row, err
}

func (s *CardStore) GetForUpdate(ctx context.Context, tx Getter, id string) (models.Card, error) {
	var row models.Card
	err := tx.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	return row, err
}

func (s *CardStore) ListByUser(ctx context.Context, userID string) ([]models.Card, error) {
	var rows []models.Card
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DebitBalance draws from a restricted card's own balance.
func (s *CardStore) DebitBalance(ctx context.Context, tx Execer, id string, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance IS NOT NULL AND balance >= $1
	`, amount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Attach binds an unbound card and activates it.
func (s *CardStore) Attach(ctx context.Context, tx Execer, id, userID, walletID string, name *string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET user_id = $1, wallet_id = $2, name = $3, active = TRUE, updated_at = NOW()
		WHERE id = $4 AND user_id IS NULL AND deleted_at IS NULL
	`, userID, walletID, name, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Detach unbinds the card and clears its name and restricted balance.
func (s *CardStore) Detach(ctx context.Context, tx Execer, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET user_id = NULL, wallet_id = NULL, name = NULL, balance = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *CardStore) Update(ctx context.Context, tx Execer, id string, name *string, active *bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET name = COALESCE($1, name), active = COALESCE($2, active), updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, name, active, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete is a soft delete; history rows keep pointing at the card id.
func (s *CardStore) Delete(ctx context.Context, tx Execer, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET deleted_at = NOW(), active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
