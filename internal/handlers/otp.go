package handlers

import (
	"net/http"
	"strings"

	"starkpay/internal/middleware"
	"starkpay/internal/models"
)

type otpRequest struct {
	Purpose models.OTPPurpose `json:"purpose"`
	Code    string            `json:"code"`
}

// IssueOTP sends a code bound to the caller's email. The code itself travels
// through the notification pipeline, never in the response.
func (h *Handler) IssueOTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to send OTP")
		return
	}
	if _, err := h.OTP.Issue(r.Context(), user.ID, req.Purpose, user.Email); err != nil {
		respondErr(w, r, err, "Failed to send OTP")
		return
	}
	respondJSON(w, http.StatusCreated, "OTP sent", nil)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}
	user, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to verify OTP")
		return
	}
	identity, err := h.OTP.Verify(r.Context(), strings.TrimSpace(req.Code), req.Purpose, user.Email)
	if err != nil {
		respondErr(w, r, err, "Failed to verify OTP")
		return
	}
	respondJSON(w, http.StatusOK, "OTP verified", map[string]string{"identity_id": identity})
}
