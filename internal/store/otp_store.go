package store

import (
	"context"

	"starkpay/internal/models"
)

type OTPStore struct {
	db DB
}

func NewOTPStore(db DB) *OTPStore {
	return &OTPStore{db: db}
}

// Upsert replaces the identity's outstanding code. A unique violation on code
// means another identity already holds the value.
func (s *OTPStore) Upsert(ctx context.Context, code models.VerificationCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_codes (identity_id, code, purpose, bound_identifier, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id) DO UPDATE
		SET code = EXCLUDED.code,
		    purpose = EXCLUDED.purpose,
		    bound_identifier = EXCLUDED.bound_identifier,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`, code.IdentityID, code.Code, code.Purpose, code.BoundIdentifier, code.ExpiresAt)
	return err
}

func (s *OTPStore) GetByCodeForUpdate(ctx context.Context, tx Getter, code string) (models.VerificationCode, error) {
	var row models.VerificationCode
	err := tx.GetContext(ctx, &row, `
		SELECT identity_id, code, purpose, bound_identifier, expires_at
		FROM verification_codes
		WHERE code = $1
		FOR UPDATE
	`, code)
	return row, err
}

func (s *OTPStore) Delete(ctx context.Context, tx Execer, identityID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE identity_id = $1`, identityID)
	return err
}
