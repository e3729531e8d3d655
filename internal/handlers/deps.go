package handlers

import (
	"context"
	"net/http"

	"starkpay/internal/models"
	"starkpay/internal/services"
	"starkpay/internal/store"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	HasRole(ctx context.Context, userID string, role models.Role) (bool, error)
}

type CollectionService interface {
	Collect(ctx context.Context, req services.CollectRequest) (models.Transaction, error)
}

type TransferService interface {
	Transfer(ctx context.Context, req services.TransferRequest) (models.Transaction, error)
}

type WithdrawalService interface {
	UserWithdraw(ctx context.Context, req services.UserWithdrawRequest) (models.Transaction, error)
	BusinessWithdraw(ctx context.Context, req services.BusinessWithdrawRequest) (models.Transaction, error)
	BusinessWithdrawable(ctx context.Context, businessID string) (int64, error)
}

type FundingService interface {
	FundWithBankTransfer(ctx context.Context, userID string, amount int64) (services.FundingAccount, error)
	AgentFundWithBankTransfer(ctx context.Context, identifier string, amount int64) (services.FundingAccount, error)
	FundWithCard(ctx context.Context, userID string, amount int64, reference string) (models.Transaction, error)
	ActiveProcessor(ctx context.Context) (models.Processor, error)
}

type CardService interface {
	Create(ctx context.Context, actorID string) (services.IssuedCard, error)
	Attach(ctx context.Context, req services.AttachCardRequest) (models.Card, error)
	Detach(ctx context.Context, userID, cardID string) error
	Update(ctx context.Context, req services.UpdateCardRequest) (models.Card, error)
	Delete(ctx context.Context, actorID, cardID string) error
	AgentAttach(ctx context.Context, req services.AgentAttachRequest) (models.Card, error)
	AgentDisable(ctx context.Context, req services.AgentDisableRequest) error
	ListByUser(ctx context.Context, userID string) ([]models.Card, error)
	History(ctx context.Context, userID, cardID string) ([]store.CardHistoryEntry, error)
}

type OTPService interface {
	Issue(ctx context.Context, identityID string, purpose models.OTPPurpose, boundIdentifier string) (string, error)
	Verify(ctx context.Context, code string, purpose models.OTPPurpose, boundIdentifier string) (string, error)
}

type BankDirectory interface {
	Resolve(ctx context.Context, slug string) (models.Bank, error)
}

type WebhookService interface {
	Flutterwave(ctx context.Context, signature string, body []byte) error
	Paystack(ctx context.Context, signature string, body []byte) error
}

type BalanceSocket interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}
