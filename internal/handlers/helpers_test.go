package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/config"
	"starkpay/internal/idempotency"
	"starkpay/internal/models"
	"starkpay/internal/ratelimit"
	"starkpay/internal/services"
	"starkpay/internal/store"
)

const testSecret = "secret"

var (
	errNoRows       = apperr.NotFound("User not found")
	errBankNotFound = apperr.NotFound("Bank not found")
)

type stubUserStore struct {
	users map[string]models.User
	roles map[string][]models.Role
}

func (s stubUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, errNoRows
	}
	return user, nil
}

func (s stubUserStore) HasRole(ctx context.Context, userID string, role models.Role) (bool, error) {
	for _, r := range s.roles[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

type stubCollectionService struct {
	collectFn func(ctx context.Context, req services.CollectRequest) (models.Transaction, error)
}

func (s stubCollectionService) Collect(ctx context.Context, req services.CollectRequest) (models.Transaction, error) {
	if s.collectFn == nil {
		return models.Transaction{}, nil
	}
	return s.collectFn(ctx, req)
}

type stubTransferService struct {
	transferFn func(ctx context.Context, req services.TransferRequest) (models.Transaction, error)
}

func (s stubTransferService) Transfer(ctx context.Context, req services.TransferRequest) (models.Transaction, error) {
	if s.transferFn == nil {
		return models.Transaction{}, nil
	}
	return s.transferFn(ctx, req)
}

type stubWithdrawalService struct {
	userWithdrawFn     func(ctx context.Context, req services.UserWithdrawRequest) (models.Transaction, error)
	businessWithdrawFn func(ctx context.Context, req services.BusinessWithdrawRequest) (models.Transaction, error)
	withdrawableFn     func(ctx context.Context, businessID string) (int64, error)
}

func (s stubWithdrawalService) UserWithdraw(ctx context.Context, req services.UserWithdrawRequest) (models.Transaction, error) {
	if s.userWithdrawFn == nil {
		return models.Transaction{}, nil
	}
	return s.userWithdrawFn(ctx, req)
}

func (s stubWithdrawalService) BusinessWithdraw(ctx context.Context, req services.BusinessWithdrawRequest) (models.Transaction, error) {
	if s.businessWithdrawFn == nil {
		return models.Transaction{}, nil
	}
	return s.businessWithdrawFn(ctx, req)
}

func (s stubWithdrawalService) BusinessWithdrawable(ctx context.Context, businessID string) (int64, error) {
	if s.withdrawableFn == nil {
		return 0, nil
	}
	return s.withdrawableFn(ctx, businessID)
}

type stubFundingService struct {
	bankTransferFn      func(ctx context.Context, userID string, amount int64) (services.FundingAccount, error)
	agentBankTransferFn func(ctx context.Context, identifier string, amount int64) (services.FundingAccount, error)
	cardFn              func(ctx context.Context, userID string, amount int64, reference string) (models.Transaction, error)
	processor           models.Processor
}

func (s stubFundingService) FundWithBankTransfer(ctx context.Context, userID string, amount int64) (services.FundingAccount, error) {
	if s.bankTransferFn == nil {
		return services.FundingAccount{}, nil
	}
	return s.bankTransferFn(ctx, userID, amount)
}

func (s stubFundingService) AgentFundWithBankTransfer(ctx context.Context, identifier string, amount int64) (services.FundingAccount, error) {
	if s.agentBankTransferFn == nil {
		return services.FundingAccount{}, nil
	}
	return s.agentBankTransferFn(ctx, identifier, amount)
}

func (s stubFundingService) FundWithCard(ctx context.Context, userID string, amount int64, reference string) (models.Transaction, error) {
	if s.cardFn == nil {
		return models.Transaction{}, nil
	}
	return s.cardFn(ctx, userID, amount, reference)
}

func (s stubFundingService) ActiveProcessor(ctx context.Context) (models.Processor, error) {
	return s.processor, nil
}

type stubCardService struct {
	createFn       func(ctx context.Context, actorID string) (services.IssuedCard, error)
	attachFn       func(ctx context.Context, req services.AttachCardRequest) (models.Card, error)
	detachFn       func(ctx context.Context, userID, cardID string) error
	updateFn       func(ctx context.Context, req services.UpdateCardRequest) (models.Card, error)
	deleteFn       func(ctx context.Context, actorID, cardID string) error
	agentAttachFn  func(ctx context.Context, req services.AgentAttachRequest) (models.Card, error)
	agentDisableFn func(ctx context.Context, req services.AgentDisableRequest) error
}

func (s stubCardService) Create(ctx context.Context, actorID string) (services.IssuedCard, error) {
	if s.createFn == nil {
		return services.IssuedCard{}, nil
	}
	return s.createFn(ctx, actorID)
}

func (s stubCardService) Attach(ctx context.Context, req services.AttachCardRequest) (models.Card, error) {
	if s.attachFn == nil {
		return models.Card{}, nil
	}
	return s.attachFn(ctx, req)
}

func (s stubCardService) Detach(ctx context.Context, userID, cardID string) error {
	if s.detachFn == nil {
		return nil
	}
	return s.detachFn(ctx, userID, cardID)
}

func (s stubCardService) Update(ctx context.Context, req services.UpdateCardRequest) (models.Card, error) {
	if s.updateFn == nil {
		return models.Card{}, nil
	}
	return s.updateFn(ctx, req)
}

func (s stubCardService) Delete(ctx context.Context, actorID, cardID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, actorID, cardID)
}

func (s stubCardService) AgentAttach(ctx context.Context, req services.AgentAttachRequest) (models.Card, error) {
	if s.agentAttachFn == nil {
		return models.Card{}, nil
	}
	return s.agentAttachFn(ctx, req)
}

func (s stubCardService) AgentDisable(ctx context.Context, req services.AgentDisableRequest) error {
	if s.agentDisableFn == nil {
		return nil
	}
	return s.agentDisableFn(ctx, req)
}

func (s stubCardService) ListByUser(ctx context.Context, userID string) ([]models.Card, error) {
	return []models.Card{}, nil
}

func (s stubCardService) History(ctx context.Context, userID, cardID string) ([]store.CardHistoryEntry, error) {
	return []store.CardHistoryEntry{}, nil
}

type stubOTPService struct {
	issued   []models.OTPPurpose
	bounds   []string
	verifyFn func(ctx context.Context, code string, purpose models.OTPPurpose, bound string) (string, error)
}

func (s *stubOTPService) Issue(ctx context.Context, identityID string, purpose models.OTPPurpose, bound string) (string, error) {
	s.issued = append(s.issued, purpose)
	s.bounds = append(s.bounds, bound)
	return "123456", nil
}

func (s *stubOTPService) Verify(ctx context.Context, code string, purpose models.OTPPurpose, bound string) (string, error) {
	if s.verifyFn == nil {
		return "user-1", nil
	}
	return s.verifyFn(ctx, code, purpose, bound)
}

type stubBankDirectory struct {
	banks map[string]models.Bank
}

func (s stubBankDirectory) Resolve(ctx context.Context, slug string) (models.Bank, error) {
	bank, ok := s.banks[slug]
	if !ok {
		return models.Bank{}, errBankNotFound
	}
	return bank, nil
}

type stubWebhookService struct {
	err   error
	calls []string
}

func (s *stubWebhookService) Flutterwave(ctx context.Context, signature string, body []byte) error {
	s.calls = append(s.calls, "flutterwave:"+signature)
	return s.err
}

func (s *stubWebhookService) Paystack(ctx context.Context, signature string, body []byte) error {
	s.calls = append(s.calls, "paystack:"+signature)
	return s.err
}

type stubSocket struct {
	userIDs []string
}

func (s *stubSocket) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	s.userIDs = append(s.userIDs, userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// newTestDeps wires stubs for every collaborator. Tests override the ones
// they exercise.
func newTestDeps(t *testing.T) Deps {
	client := newRedis(t)
	return Deps{
		Users: stubUserStore{
			users: map[string]models.User{
				"user-1":  {ID: "user-1", Username: "ada", Email: "ada@example.com", Role: models.RoleUser},
				"agent-1": {ID: "agent-1", Username: "agent", Email: "agent@example.com", Role: models.RoleAgent},
				"biz-1":   {ID: "biz-1", Username: "shop", Email: "shop@example.com", Role: models.RoleBusiness, BusinessID: models.StringPtr("business-1")},
			},
			roles: map[string][]models.Role{
				"user-1":  {models.RoleUser},
				"agent-1": {models.RoleAgent},
				"biz-1":   {models.RoleBusiness},
			},
		},
		Collections: stubCollectionService{},
		Transfers:   stubTransferService{},
		Withdrawals: stubWithdrawalService{},
		Funding:     stubFundingService{processor: models.ProcessorFlutterwave},
		Cards:       stubCardService{},
		OTP:         &stubOTPService{},
		Banks:       stubBankDirectory{},
		Webhooks:    &stubWebhookService{},
		Sockets:     &stubSocket{},
		Idempotency: idempotency.NewRedisRepository(client),
		OTPLimiter:  ratelimit.New(client, "otp-verify", 10, time.Minute),
	}
}

func newTestRouter(deps Deps) http.Handler {
	return New(config.Config{JWTSecret: testSecret, AllowedOrigins: "*", IdempotencyTTLHours: 24}, deps).Routes()
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return env
}
