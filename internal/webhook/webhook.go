// Package webhook authenticates processor callbacks and turns their payloads
// into reconciliation events.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"starkpay/internal/apperr"
	"starkpay/internal/models"
	"starkpay/internal/money"
	"starkpay/internal/reconcile"
)

const (
	HeaderFlutterwave = "verif-hash"
	HeaderPaystack    = "x-paystack-signature"
)

var (
	ErrInvalidSignature  = apperr.New(apperr.KindForbidden, "Invalid webhook signature")
	ErrChargeUnverified  = apperr.New(apperr.KindForbidden, "Processor could not confirm the charge")
	errMalformedPayload  = apperr.Validation("Malformed webhook payload")
	errMissingSecretHash = errors.New("webhook secret is not configured")
)

type Reconciler interface {
	ReconcileFunding(ctx context.Context, event reconcile.FundingEvent) (bool, error)
	ReconcilePayout(ctx context.Context, event reconcile.PayoutEvent) (bool, error)
}

type ChargeVerifier interface {
	VerifyInboundCharge(ctx context.Context, providerTrxID string, expectedAmount int64) (bool, error)
}

type PayloadLog interface {
	Log(ctx context.Context, id string, source models.Processor, payload []byte) error
}

type Service struct {
	reconciler     Reconciler
	verifier       ChargeVerifier
	payloads       PayloadLog
	flwSecretHash  string
	paystackSecret string
}

func NewService(reconciler Reconciler, verifier ChargeVerifier, payloads PayloadLog, flwSecretHash, paystackSecret string) *Service {
	return &Service{
		reconciler:     reconciler,
		verifier:       verifier,
		payloads:       payloads,
		flwSecretHash:  flwSecretHash,
		paystackSecret: paystackSecret,
	}
}

// VerifyFlutterwave compares the shared secret hash header in constant time.
func VerifyFlutterwave(header, secretHash string) bool {
	if secretHash == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secretHash)) == 1
}

// VerifyPaystack checks the hex HMAC-SHA512 of the raw body.
func VerifyPaystack(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

type flutterwavePayload struct {
	Event     string          `json:"event"`
	EventType string          `json:"event.type"`
	Data      flutterwaveData `json:"data"`
}

type flutterwaveData struct {
	ID        json.Number     `json:"id"`
	TxRef     string          `json:"tx_ref"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Status    string          `json:"status"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Flutterwave handles one callback. The returned error is ErrInvalidSignature
// when the caller is not Flutterwave. Kinded errors are rejections of the
// event itself; unkinded and ServiceUnavailable errors are worth a retry.
func (s *Service) Flutterwave(ctx context.Context, signature string, body []byte) error {
	if s.flwSecretHash == "" {
		log.Error().Err(errMissingSecretHash).Msg("rejecting flutterwave webhook")
		return ErrInvalidSignature
	}
	if !VerifyFlutterwave(signature, s.flwSecretHash) {
		return ErrInvalidSignature
	}
	s.store(ctx, models.ProcessorFlutterwave, body)

	var payload flutterwavePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	data := payload.Data

	switch payload.EventType {
	case "BANK_TRANSFER_TRANSACTION":
		amount := money.FromDecimal(data.Amount)
		verified, err := s.verifier.VerifyInboundCharge(ctx, data.ID.String(), amount)
		if err != nil {
			return fmt.Errorf("verify flutterwave charge %s: %w", data.ID, err)
		}
		if !verified {
			log.Warn().Str("id", data.ID.String()).Str("reference", data.TxRef).Msg("flutterwave charge failed verification")
			return ErrChargeUnverified
		}
		_, err = s.reconciler.ReconcileFunding(ctx, reconcile.FundingEvent{
			Processor:       models.ProcessorFlutterwave,
			Reference:       data.TxRef,
			ProcessorTrxID:  data.ID.String(),
			ProcessorStatus: data.Status,
			Success:         payload.Event == "charge.completed" && data.Status == "successful",
			Amount:          amount,
			CustomerEmail:   strings.ToLower(data.Customer.Email),
		})
		return err
	case "Transfer":
		if payload.Event != "transfer.completed" {
			log.Info().Str("reference", data.Reference).Str("event", payload.Event).Msg("flutterwave transfer not completed yet")
			return nil
		}
		var success bool
		switch strings.ToUpper(data.Status) {
		case "SUCCESSFUL":
			success = true
		case "FAILED":
			success = false
		default:
			log.Info().Str("reference", data.Reference).Str("status", data.Status).Msg("ignoring non-final transfer status")
			return nil
		}
		_, err := s.reconciler.ReconcilePayout(ctx, reconcile.PayoutEvent{
			Reference:       data.Reference,
			ProcessorStatus: data.Status,
			Success:         success,
			Fee:             money.FromDecimal(data.Fee),
		})
		return err
	}
	log.Info().Str("event_type", payload.EventType).Msg("unhandled flutterwave webhook event")
	return nil
}

type paystackPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Amount    int64       `json:"amount"`
		Status    string      `json:"status"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// Paystack handles one callback. Paystack reports amounts in kobo.
func (s *Service) Paystack(ctx context.Context, signature string, body []byte) error {
	if !VerifyPaystack(body, signature, s.paystackSecret) {
		return ErrInvalidSignature
	}
	s.store(ctx, models.ProcessorPaystack, body)

	var payload paystackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	if payload.Event != "charge.success" {
		log.Info().Str("event", payload.Event).Msg("unhandled paystack webhook event")
		return nil
	}
	_, err := s.reconciler.ReconcileFunding(ctx, reconcile.FundingEvent{
		Processor:       models.ProcessorPaystack,
		Reference:       payload.Data.Reference,
		ProcessorTrxID:  payload.Data.ID.String(),
		ProcessorStatus: payload.Data.Status,
		Success:         payload.Data.Status == "success",
		Amount:          payload.Data.Amount,
		CustomerEmail:   strings.ToLower(payload.Data.Customer.Email),
	})
	return err
}

// store keeps the raw callback. A failed insert never blocks reconciliation.
func (s *Service) store(ctx context.Context, source models.Processor, body []byte) {
	if !json.Valid(body) {
		return
	}
	if err := s.payloads.Log(ctx, uuid.NewString(), source, body); err != nil {
		log.Error().Err(err).Str("source", string(source)).Msg("failed to store webhook payload")
	}
}
