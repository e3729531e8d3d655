package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"starkpay/internal/middleware"
	"starkpay/internal/money"
	"starkpay/internal/services"
)

type collectRequest struct {
	CardID     string      `json:"card_id"`
	CardSecret string      `json:"card_secret"`
	Amount     json.Number `json:"amount"`
	Password   string      `json:"password"`
}

func (h *Handler) CollectForStation(w http.ResponseWriter, r *http.Request) {
	stationID, _ := middleware.StationIDFromContext(r.Context())
	h.collect(w, r, services.StationCollector{StationID: stationID})
}

func (h *Handler) CollectForMerchant(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	h.collect(w, r, services.MerchantCollector{UserID: userID})
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request, collector services.Collector) {
	var req collectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CardID) == "" || req.CardSecret == "" {
		respondError(w, http.StatusBadRequest, "card_id and card_secret are required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	trx, err := h.Collections.Collect(r.Context(), services.CollectRequest{
		Collector:  collector,
		CardID:     strings.TrimSpace(req.CardID),
		CardSecret: req.CardSecret,
		Amount:     amount,
		Password:   req.Password,
	})
	if err != nil {
		respondErr(w, r, err, "Payment failed")
		return
	}
	respondJSON(w, http.StatusCreated, "Payment successful", trx)
}

type transferRequest struct {
	Recipient string      `json:"recipient"`
	Amount    json.Number `json:"amount"`
	Narration *string     `json:"narration"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Recipient) == "" {
		respondError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	trx, err := h.Transfers.Transfer(r.Context(), services.TransferRequest{
		SenderUserID:        userID,
		RecipientIdentifier: req.Recipient,
		Amount:              amount,
		Narration:           trimmed(req.Narration),
	})
	if err != nil {
		respondErr(w, r, err, "Transfer failed")
		return
	}
	respondJSON(w, http.StatusCreated, "Transfer successful", trx)
}

type withdrawRequest struct {
	Amount    json.Number `json:"amount"`
	Password  string      `json:"password"`
	Narration *string     `json:"narration"`
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req withdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	trx, err := h.Withdrawals.UserWithdraw(r.Context(), services.UserWithdrawRequest{
		UserID:    userID,
		Amount:    amount,
		Password:  req.Password,
		Narration: trimmed(req.Narration),
	})
	if err != nil {
		respondErr(w, r, err, "Failed to make withdrawal request")
		return
	}
	respondJSON(w, http.StatusCreated, "Withdrawal request received", trx)
}

func (h *Handler) BusinessWithdraw(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req withdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	trx, err := h.Withdrawals.BusinessWithdraw(r.Context(), services.BusinessWithdrawRequest{
		UserID:   userID,
		Amount:   amount,
		Password: req.Password,
	})
	if err != nil {
		respondErr(w, r, err, "Failed to make withdrawal request")
		return
	}
	respondJSON(w, http.StatusCreated, "Withdrawal request received", trx)
}

func (h *Handler) BusinessWithdrawable(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	user, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to get balance")
		return
	}
	if user.BusinessID == nil {
		respondError(w, http.StatusForbidden, "You are not allowed to perform this action")
		return
	}
	amount, err := h.Withdrawals.BusinessWithdrawable(r.Context(), *user.BusinessID)
	if err != nil {
		respondErr(w, r, err, "Failed to get balance")
		return
	}
	respondJSON(w, http.StatusOK, "Withdrawable balance", map[string]any{
		"amount":    amount,
		"formatted": money.FormatMinor(amount),
	})
}

func (h *Handler) FeeQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(json.Number(r.URL.Query().Get("amount")))
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	fee := services.TransferFee(amount)
	respondJSON(w, http.StatusOK, "Fee calculated", map[string]any{
		"amount": amount,
		"fee":    fee,
		"total":  amount + fee,
	})
}

type fundingRequest struct {
	Amount     json.Number `json:"amount"`
	Reference  string      `json:"reference"`
	Identifier string      `json:"identifier"`
}

func (h *Handler) FundWithBankTransfer(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req fundingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	account, err := h.Funding.FundWithBankTransfer(r.Context(), userID, amount)
	if err != nil {
		respondErr(w, r, err, "Failed to fund wallet")
		return
	}
	respondJSON(w, http.StatusCreated, "Transfer to the account below to fund your wallet", account)
}

func (h *Handler) AgentFundWithBankTransfer(w http.ResponseWriter, r *http.Request) {
	var req fundingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		respondError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	account, err := h.Funding.AgentFundWithBankTransfer(r.Context(), req.Identifier, amount)
	if err != nil {
		respondErr(w, r, err, "Failed to fund wallet")
		return
	}
	respondJSON(w, http.StatusCreated, "Transfer to the account below to fund the wallet", account)
}

func (h *Handler) FundWithCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req fundingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Reference) == "" {
		respondError(w, http.StatusBadRequest, "reference is required")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondErr(w, r, err, "Invalid amount")
		return
	}
	trx, err := h.Funding.FundWithCard(r.Context(), userID, amount, req.Reference)
	if err != nil {
		respondErr(w, r, err, "Failed to fund wallet")
		return
	}
	respondJSON(w, http.StatusCreated, "Funding pending", trx)
}

func (h *Handler) ActiveProcessor(w http.ResponseWriter, r *http.Request) {
	processor, err := h.Funding.ActiveProcessor(r.Context())
	if err != nil {
		respondErr(w, r, err, "Failed to get payment processor")
		return
	}
	respondJSON(w, http.StatusOK, "Payment processor", map[string]string{"processor": string(processor)})
}
