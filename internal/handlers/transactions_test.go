package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/idempotency"
	"starkpay/internal/models"
	"starkpay/internal/services"
)

func TestTransferSuccess(t *testing.T) {
	deps := newTestDeps(t)
	var got services.TransferRequest
	deps.Transfers = stubTransferService{transferFn: func(_ context.Context, req services.TransferRequest) (models.Transaction, error) {
		got = req
		return models.Transaction{ID: "tx-1", TransactionReference: "stark-pay-transfer-1", Amount: req.Amount}, nil
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/transfers", tokenFor(t, "user-1"),
		`{"recipient":"@bola","amount":"2500.75","narration":"  lunch  "}`)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "user-1", got.SenderUserID)
	assert.Equal(t, "@bola", got.RecipientIdentifier)
	assert.Equal(t, int64(250075), got.Amount)
	require.NotNil(t, got.Narration)
	assert.Equal(t, "lunch", *got.Narration)
	env := decodeEnvelope(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "Transfer successful", env.Message)
}

func TestTransferInsufficientFunds(t *testing.T) {
	deps := newTestDeps(t)
	deps.Transfers = stubTransferService{transferFn: func(context.Context, services.TransferRequest) (models.Transaction, error) {
		return models.Transaction{}, apperr.InsufficientFunds()
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/transfers", tokenFor(t, "user-1"), `{"recipient":"bola","amount":100}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Insufficient balance", decodeEnvelope(t, rr).Message)
}

func TestTransferRejectsBadInput(t *testing.T) {
	calls := 0
	deps := newTestDeps(t)
	deps.Transfers = stubTransferService{transferFn: func(context.Context, services.TransferRequest) (models.Transaction, error) {
		calls++
		return models.Transaction{}, nil
	}}
	router := newTestRouter(deps)
	token := tokenFor(t, "user-1")

	for _, body := range []string{`{"amount":100}`, `{"recipient":"bola","amount":0}`, `{"recipient":"bola","amount":"x"}`, `not json`} {
		rr := doRequest(t, router, http.MethodPost, "/transfers", token, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Zero(t, calls)
}

func TestTransferIdempotencyKeyReplaysResponse(t *testing.T) {
	calls := 0
	deps := newTestDeps(t)
	deps.Transfers = stubTransferService{transferFn: func(context.Context, services.TransferRequest) (models.Transaction, error) {
		calls++
		return models.Transaction{ID: "tx-1"}, nil
	}}
	router := newTestRouter(deps)
	token := tokenFor(t, "user-1")

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"recipient":"bola","amount":100}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(idempotency.HeaderKey, "key-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	second := send()

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderHit))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestCollectForStationRequiresStationToken(t *testing.T) {
	rr := doRequest(t, newTestRouter(newTestDeps(t)), http.MethodPost, "/collections/station", tokenFor(t, "user-1"),
		`{"card_id":"c-1","card_secret":"s","amount":100}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCollectForStation(t *testing.T) {
	deps := newTestDeps(t)
	var got services.CollectRequest
	deps.Collections = stubCollectionService{collectFn: func(_ context.Context, req services.CollectRequest) (models.Transaction, error) {
		got = req
		return models.Transaction{ID: "tx-1"}, nil
	}}
	token, err := auth.GenerateStationToken(testSecret, "user-1", "station-1", time.Minute)
	require.NoError(t, err)

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/collections/station", token,
		`{"card_id":" c-1 ","card_secret":"secret","amount":"350","password":"pw"}`)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, services.StationCollector{StationID: "station-1"}, got.Collector)
	assert.Equal(t, "c-1", got.CardID)
	assert.Equal(t, int64(35000), got.Amount)
	assert.Equal(t, "pw", got.Password)
}

func TestCollectForMerchantRequiresRole(t *testing.T) {
	rr := doRequest(t, newTestRouter(newTestDeps(t)), http.MethodPost, "/collections/merchant", tokenFor(t, "user-1"),
		`{"card_id":"c-1","card_secret":"s","amount":100}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCollectDailyLimitMessage(t *testing.T) {
	deps := newTestDeps(t)
	deps.Collections = stubCollectionService{collectFn: func(context.Context, services.CollectRequest) (models.Transaction, error) {
		return models.Transaction{}, apperr.New(apperr.KindDailyLimitExceeded, "Daily transaction limit reached. You cannot spend more than ₦1000.00 for the rest of the day")
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/collections/merchant", tokenFor(t, "biz-1"),
		`{"card_id":"c-1","card_secret":"s","amount":100}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, decodeEnvelope(t, rr).Message, "Daily transaction limit reached")
}

func TestWithdrawBelowMinimum(t *testing.T) {
	deps := newTestDeps(t)
	deps.Withdrawals = stubWithdrawalService{userWithdrawFn: func(context.Context, services.UserWithdrawRequest) (models.Transaction, error) {
		return models.Transaction{}, apperr.New(apperr.KindBelowMinimum, "Amount is below minimum limit of 100")
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/withdrawals", tokenFor(t, "user-1"), `{"amount":50,"password":"pw"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Amount is below minimum limit of 100", decodeEnvelope(t, rr).Message)
}

func TestWithdrawRailUnavailable(t *testing.T) {
	deps := newTestDeps(t)
	deps.Withdrawals = stubWithdrawalService{userWithdrawFn: func(context.Context, services.UserWithdrawRequest) (models.Transaction, error) {
		return models.Transaction{}, apperr.New(apperr.KindServiceUnavailable, "Failed to make withdrawal request")
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/withdrawals", tokenFor(t, "user-1"), `{"amount":500,"password":"pw"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBusinessWithdrawable(t *testing.T) {
	deps := newTestDeps(t)
	var businessID string
	deps.Withdrawals = stubWithdrawalService{withdrawableFn: func(_ context.Context, id string) (int64, error) {
		businessID = id
		return 1234567, nil
	}}
	router := newTestRouter(deps)

	rr := doRequest(t, router, http.MethodGet, "/withdrawals/business/balance", tokenFor(t, "biz-1"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "business-1", businessID)
	data := decodeEnvelope(t, rr).Data.(map[string]any)
	assert.Equal(t, "12345.67", data["formatted"])

	rr = doRequest(t, router, http.MethodGet, "/withdrawals/business/balance", tokenFor(t, "user-1"), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestFeeQuote(t *testing.T) {
	rr := doRequest(t, newTestRouter(newTestDeps(t)), http.MethodGet, "/fees?amount=5000", tokenFor(t, "user-1"), nil)

	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeEnvelope(t, rr).Data.(map[string]any)
	assert.Equal(t, float64(500000), data["amount"])
	assert.Equal(t, float64(1075), data["fee"])
	assert.Equal(t, float64(501075), data["total"])
}

func TestFundWithBankTransfer(t *testing.T) {
	deps := newTestDeps(t)
	deps.Funding = stubFundingService{bankTransferFn: func(_ context.Context, userID string, amount int64) (services.FundingAccount, error) {
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, int64(1000000), amount)
		return services.FundingAccount{Reference: "ref", BankName: "Wema", AccountNumber: "7800000000", AccountName: "ada (StarkPay)"}, nil
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/funding/bank-transfer", tokenFor(t, "user-1"), `{"amount":10000}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	data := decodeEnvelope(t, rr).Data.(map[string]any)
	assert.Equal(t, "7800000000", data["account_number"])
}

func TestFundWithCardRequiresReference(t *testing.T) {
	rr := doRequest(t, newTestRouter(newTestDeps(t)), http.MethodPost, "/funding/card", tokenFor(t, "user-1"), `{"amount":100}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFundingLimitExceeded(t *testing.T) {
	deps := newTestDeps(t)
	deps.Funding = stubFundingService{cardFn: func(context.Context, string, int64, string) (models.Transaction, error) {
		return models.Transaction{}, apperr.New(apperr.KindLimitExceeded, "Your cannot fund with more than 50,000 at once.")
	}}

	rr := doRequest(t, newTestRouter(deps), http.MethodPost, "/funding/card", tokenFor(t, "user-1"), `{"amount":60000,"reference":"ref-1"}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAgentFundingRequiresAgent(t *testing.T) {
	router := newTestRouter(newTestDeps(t))

	rr := doRequest(t, router, http.MethodPost, "/agent/funding/bank-transfer", tokenFor(t, "user-1"), `{"identifier":"ada","amount":100}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/agent/funding/bank-transfer", tokenFor(t, "agent-1"), `{"identifier":"ada","amount":100}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestActiveProcessor(t *testing.T) {
	rr := doRequest(t, newTestRouter(newTestDeps(t)), http.MethodGet, "/processor", tokenFor(t, "user-1"), nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"processor": "FLUTTERWAVE"}, decodeEnvelope(t, rr).Data)
}
