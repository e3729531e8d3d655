// Package otp issues and verifies single-use verification codes scoped to a
// purpose and, optionally, to the contact they were sent to.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/db"
	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/store"
)

const (
	MsgInvalid = "This OTP is invalid."
	MsgExpired = "This OTP has expired."

	maxIssueAttempts = 20
)

var (
	ErrInvalid = apperr.New(apperr.KindForbidden, MsgInvalid)
	ErrExpired = apperr.New(apperr.KindForbidden, MsgExpired)
)

type Store interface {
	Upsert(ctx context.Context, code models.VerificationCode) error
	GetByCodeForUpdate(ctx context.Context, tx store.Getter, code string) (models.VerificationCode, error)
	Delete(ctx context.Context, tx store.Execer, identityID string) error
}

type Service struct {
	txRunner db.TxRunner
	store    Store
	events   events.Emitter
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

func NewService(txRunner db.TxRunner, store Store, emitter events.Emitter, ttl time.Duration) *Service {
	return &Service{
		txRunner: txRunner,
		store:    store,
		events:   emitter,
		ttl:      ttl,
		now:      time.Now,
		generate: randomCode,
	}
}

// Issue stores a fresh code for identityID, replacing any outstanding one,
// and queues it for delivery.
func (s *Service) Issue(ctx context.Context, identityID string, purpose models.OTPPurpose, boundIdentifier string) (string, error) {
	if !purpose.Valid() {
		return "", apperr.Validation("Invalid OTP purpose")
	}
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", apperr.Wrap(apperr.KindServiceUnavailable, "Failed to send OTP", err)
		}
		err = s.store.Upsert(ctx, models.VerificationCode{
			IdentityID:      identityID,
			Code:            code,
			Purpose:         purpose,
			BoundIdentifier: boundIdentifier,
			ExpiresAt:       s.now().Add(s.ttl),
		})
		if apperr.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", apperr.Wrap(apperr.KindServiceUnavailable, "Failed to send OTP", err)
		}
		if s.events != nil {
			s.events.Emit(events.Event{
				Type:   events.OTPIssued,
				UserID: identityID,
				Data: map[string]string{
					"code":    code,
					"purpose": string(purpose),
				},
			})
		}
		return code, nil
	}
	log.Error().Str("identity_id", identityID).Msg("could not find a free verification code")
	return "", apperr.New(apperr.KindServiceUnavailable, "Failed to send OTP")
}

// Verify consumes code and returns the identity it was issued to. An empty
// boundIdentifier skips the contact check. Expired codes are removed.
func (s *Service) Verify(ctx context.Context, code string, purpose models.OTPPurpose, boundIdentifier string) (string, error) {
	var identityID string
	expired := false
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.store.GetByCodeForUpdate(ctx, tx, code)
		if store.IsNotFound(err) {
			return ErrInvalid
		}
		if err != nil {
			return err
		}
		if row.Purpose != purpose {
			return ErrInvalid
		}
		if boundIdentifier != "" && row.BoundIdentifier != boundIdentifier {
			return ErrInvalid
		}
		if err := s.store.Delete(ctx, tx, row.IdentityID); err != nil {
			return err
		}
		if s.now().After(row.ExpiresAt) {
			expired = true
			return nil
		}
		identityID = row.IdentityID
		return nil
	})
	if err != nil {
		return "", apperr.FromStore(err, "Failed to verify OTP")
	}
	if expired {
		return "", ErrExpired
	}
	return identityID, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
