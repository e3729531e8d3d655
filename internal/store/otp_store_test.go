package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkpay/internal/models"
)

func TestOTPStoreUpsertReplacesByIdentity(t *testing.T) {
	db, mock := newMockDB(t)
	expires := time.Now().Add(5 * time.Minute)
	mock.ExpectExec(`INSERT INTO verification_codes .* ON CONFLICT \(identity_id\) DO UPDATE`).
		WithArgs("user-1", "123456", models.OTPAddCard, "a@b.co", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewOTPStore(db).Upsert(context.Background(), models.VerificationCode{
		IdentityID:      "user-1",
		Code:            "123456",
		Purpose:         models.OTPAddCard,
		BoundIdentifier: "a@b.co",
		ExpiresAt:       expires,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPStoreUpsertSurfacesCodeCollision(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO verification_codes`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := NewOTPStore(db).Upsert(context.Background(), models.VerificationCode{IdentityID: "user-2", Code: "123456"})

	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, pq.ErrorCode("23505"), pqErr.Code)
}

func TestOTPStoreGetByCodeForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	expires := time.Now().Add(time.Minute)
	mock.ExpectQuery(`FROM verification_codes WHERE code = \$1 FOR UPDATE`).
		WithArgs("654321").
		WillReturnRows(sqlmock.NewRows([]string{"identity_id", "code", "purpose", "bound_identifier", "expires_at"}).
			AddRow("user-1", "654321", "DISABLE_CARD", "", expires))

	code, err := NewOTPStore(db).GetByCodeForUpdate(context.Background(), db, "654321")

	require.NoError(t, err)
	assert.Equal(t, "user-1", code.IdentityID)
	assert.Equal(t, models.OTPDisableCard, code.Purpose)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPStoreDelete(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM verification_codes WHERE identity_id = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewOTPStore(db).Delete(context.Background(), db, "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
