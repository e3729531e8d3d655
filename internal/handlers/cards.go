package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"starkpay/internal/middleware"
	"starkpay/internal/services"
)

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	cards, err := h.Cards.ListByUser(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to get cards")
		return
	}
	respondJSON(w, http.StatusOK, "Cards", cards)
}

// CreateCard mints an unbound card. The secret is only ever returned here.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	card, err := h.Cards.Create(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to create card")
		return
	}
	respondJSON(w, http.StatusCreated, "Card created", card)
}

type attachCardRequest struct {
	NFCCardNumber string  `json:"nfc_card_number"`
	WalletID      *string `json:"wallet_id"`
	Name          *string `json:"name"`
	Pin           *string `json:"pin"`
	OTP           string  `json:"otp"`
	User          string  `json:"user"`
}

func (h *Handler) AttachCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req attachCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NFCCardNumber) == "" {
		respondError(w, http.StatusBadRequest, "nfc_card_number is required")
		return
	}
	card, err := h.Cards.Attach(r.Context(), services.AttachCardRequest{
		ActorID:       userID,
		UserID:        userID,
		NFCCardNumber: strings.TrimSpace(req.NFCCardNumber),
		WalletID:      trimmed(req.WalletID),
		Name:          trimmed(req.Name),
		Pin:           req.Pin,
	})
	if err != nil {
		respondErr(w, r, err, "Failed to attach card")
		return
	}
	respondJSON(w, http.StatusOK, "Card attached", card)
}

func (h *Handler) AgentAttachCard(w http.ResponseWriter, r *http.Request) {
	agentID, _ := middleware.UserIDFromContext(r.Context())
	var req attachCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OTP == "" || strings.TrimSpace(req.User) == "" || strings.TrimSpace(req.NFCCardNumber) == "" {
		respondError(w, http.StatusBadRequest, "otp, user and nfc_card_number are required")
		return
	}
	card, err := h.Cards.AgentAttach(r.Context(), services.AgentAttachRequest{
		AgentID:        agentID,
		OTP:            strings.TrimSpace(req.OTP),
		UserIdentifier: req.User,
		NFCCardNumber:  strings.TrimSpace(req.NFCCardNumber),
		WalletID:       trimmed(req.WalletID),
		Name:           trimmed(req.Name),
	})
	if err != nil {
		respondErr(w, r, err, "Failed to attach card")
		return
	}
	respondJSON(w, http.StatusOK, "Card attached", card)
}

func (h *Handler) AgentDisableCard(w http.ResponseWriter, r *http.Request) {
	agentID, _ := middleware.UserIDFromContext(r.Context())
	var req attachCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OTP == "" || strings.TrimSpace(req.NFCCardNumber) == "" {
		respondError(w, http.StatusBadRequest, "otp and nfc_card_number are required")
		return
	}
	err := h.Cards.AgentDisable(r.Context(), services.AgentDisableRequest{
		AgentID:       agentID,
		OTP:           strings.TrimSpace(req.OTP),
		NFCCardNumber: strings.TrimSpace(req.NFCCardNumber),
	})
	if err != nil {
		respondErr(w, r, err, "Failed to disable card")
		return
	}
	respondJSON(w, http.StatusOK, "Card disabled", nil)
}

func (h *Handler) DetachCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.Cards.Detach(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err, "Failed to detach card")
		return
	}
	respondJSON(w, http.StatusOK, "Card detached", nil)
}

type updateCardRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
	Pin    *string `json:"pin"`
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req updateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	card, err := h.Cards.Update(r.Context(), services.UpdateCardRequest{
		UserID:        userID,
		NFCCardNumber: chi.URLParam(r, "number"),
		Name:          trimmed(req.Name),
		Active:        req.Active,
		Pin:           req.Pin,
	})
	if err != nil {
		respondErr(w, r, err, "Failed to update card")
		return
	}
	respondJSON(w, http.StatusOK, "Card updated", card)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.Cards.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err, "Failed to delete card")
		return
	}
	respondJSON(w, http.StatusOK, "Card deleted", nil)
}

func (h *Handler) CardHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	history, err := h.Cards.History(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err, "Failed to get card history")
		return
	}
	respondJSON(w, http.StatusOK, "Card history", history)
}
