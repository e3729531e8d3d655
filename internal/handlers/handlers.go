package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/money"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

var errInvalidAmount = apperr.Validation("Invalid amount")

func respondJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, message, nil)
}

// respondErr maps an error kind to its status. Unkinded errors are logged and
// answered with fallback so internal text never reaches the client.
func respondErr(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
	}
	respondError(w, status, apperr.MessageOf(err, fallback))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindBelowMinimum, apperr.KindInsufficientFunds:
		return http.StatusBadRequest
	case apperr.KindForbidden, apperr.KindLimitExceeded, apperr.KindDailyLimitExceeded:
		return http.StatusForbidden
	case apperr.KindNotFound, apperr.KindInactive:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseAmount reads a naira amount given as a JSON number or string.
func parseAmount(raw json.Number) (int64, error) {
	amount, err := money.ParseMinor(strings.TrimSpace(raw.String()))
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
