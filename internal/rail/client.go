// Package rail is a client for the Flutterwave v3 API: outbound bank
// transfers, inbound charge verification and temporary funding accounts.
package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"starkpay/internal/money"
)

const currencyNGN = "NGN"

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type TransferInput struct {
	Amount        int64
	BankCode      string
	AccountNumber string
	Reference     string
	Narration     string
}

// TransferResult is the rail's view of an accepted transfer. Amount and Fee
// are in minor units.
type TransferResult struct {
	Status            string
	ProviderReference string
	Reference         string
	Amount            int64
	Fee               int64
}

type VirtualAccountInput struct {
	Email     string
	Name      string
	Amount    int64
	Reference string
}

type VirtualAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// APIError is a non-success answer from the rail. Message is shown to users.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rail api error (status %d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transferRequest struct {
	AccountBank   string      `json:"account_bank"`
	AccountNumber string      `json:"account_number"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	DebitCurrency string      `json:"debit_currency"`
	Narration     string      `json:"narration,omitempty"`
	Reference     string      `json:"reference"`
}

type transferData struct {
	ID        json.Number     `json:"id"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
}

// Initiate asks the rail to pay out to a bank account.
func (c *Client) Initiate(ctx context.Context, input TransferInput) (TransferResult, error) {
	payload := transferRequest{
		AccountBank:   input.BankCode,
		AccountNumber: input.AccountNumber,
		Amount:        amountField(input.Amount),
		Currency:      currencyNGN,
		DebitCurrency: currencyNGN,
		Narration:     input.Narration,
		Reference:     input.Reference,
	}
	var data transferData
	if err := c.do(ctx, http.MethodPost, "/v3/transfers", payload, &data); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{
		Status:            data.Status,
		ProviderReference: data.ID.String(),
		Reference:         data.Reference,
		Amount:            money.FromDecimal(data.Amount),
		Fee:               money.FromDecimal(data.Fee),
	}, nil
}

type chargeData struct {
	ID       json.Number     `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// VerifyInboundCharge confirms with the rail that a charge succeeded for
// exactly expectedAmount.
func (c *Client) VerifyInboundCharge(ctx context.Context, providerTrxID string, expectedAmount int64) (bool, error) {
	var data chargeData
	if err := c.do(ctx, http.MethodGet, "/v3/transactions/"+providerTrxID+"/verify", nil, &data); err != nil {
		return false, err
	}
	if data.Status != "successful" {
		return false, nil
	}
	if data.Currency != "" && data.Currency != currencyNGN {
		return false, nil
	}
	return money.FromDecimal(data.Amount) == expectedAmount, nil
}

type virtualAccountRequest struct {
	Email       string      `json:"email"`
	Amount      json.Number `json:"amount"`
	Frequency   string      `json:"frequency"`
	Narration   string      `json:"narration"`
	TxRef       string      `json:"tx_ref"`
	IsPermanent bool        `json:"is_permanent"`
}

// CreateVirtualAccount opens a single-use account the customer pays into.
// The resulting charge arrives later as a webhook carrying Reference.
func (c *Client) CreateVirtualAccount(ctx context.Context, input VirtualAccountInput) (VirtualAccount, error) {
	payload := virtualAccountRequest{
		Email:     input.Email,
		Amount:    amountField(input.Amount),
		Frequency: "1",
		Narration: input.Name + " (StarkPay)",
		TxRef:     input.Reference,
	}
	var data VirtualAccount
	if err := c.do(ctx, http.MethodPost, "/v3/virtual-account-numbers", payload, &data); err != nil {
		return VirtualAccount{}, err
	}
	data.AccountName = input.Name + " (StarkPay)"
	return data, nil
}

// amountField renders kobo as a bare JSON number of naira.
func amountField(kobo int64) json.Number {
	return json.Number(money.ToDecimal(kobo).String())
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("rail returned an unparsable body")
		return &APIError{StatusCode: resp.StatusCode, Message: "Transfer provider returned an invalid response"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status != "success" {
		log.Warn().Str("path", path).Int("status", resp.StatusCode).Str("message", env.Message).Msg("rail request rejected")
		msg := env.Message
		if msg == "" {
			msg = "Transfer provider rejected the request"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}
