package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/webhook"
)

func (h *Handler) FlutterwaveWebhook(w http.ResponseWriter, r *http.Request) {
	h.webhook(w, r, "flutterwave", webhook.HeaderFlutterwave, h.Webhooks.Flutterwave)
}

func (h *Handler) PaystackWebhook(w http.ResponseWriter, r *http.Request) {
	h.webhook(w, r, "paystack", webhook.HeaderPaystack, h.Webhooks.Paystack)
}

// webhook acknowledges authenticated callbacks the service accepted or
// rejected on their merits. Infrastructure failures answer 503 so the
// processor redelivers; reconciliation is idempotent.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request, source, header string, process func(context.Context, string, []byte) error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	err = process(r.Context(), r.Header.Get(header), body)
	if errors.Is(err, webhook.ErrInvalidSignature) {
		log.Warn().Str("source", source).Str("remote_addr", r.RemoteAddr).Msg("rejected webhook with invalid signature")
		respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("webhook processing failed")
		if retryable(err) {
			respondError(w, http.StatusServiceUnavailable, "Webhook processing failed, please retry")
			return
		}
	}
	respondJSON(w, http.StatusOK, "Webhook received", nil)
}

func retryable(err error) bool {
	switch apperr.KindOf(err) {
	case "", apperr.KindServiceUnavailable, apperr.KindConflict:
		return true
	}
	return false
}

// WSBalances accepts the token as a query parameter because browsers cannot
// set headers on websocket upgrades.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	h.Sockets.Serve(w, r, claims.UserID)
}
