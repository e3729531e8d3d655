package services

import (
	"context"
	"time"

	"starkpay/internal/models"
	"starkpay/internal/rail"
	"starkpay/internal/store"
)

type WalletStore interface {
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	GetByUser(ctx context.Context, userID string) (models.Wallet, error)
	GetByBusiness(ctx context.Context, businessID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	Credit(ctx context.Context, tx store.Execer, walletID string, amount int64) (int64, error)
	Debit(ctx context.Context, tx store.Execer, walletID string, amount int64) (int64, error)
	DebitWithDailyCounter(ctx context.Context, tx store.Execer, walletID string, amount, counter int64, at time.Time) (int64, error)
}

type CardStore interface {
	Create(ctx context.Context, tx store.Getter, id, hash, createdByID string) (models.Card, error)
	GetByID(ctx context.Context, id string) (models.Card, error)
	GetByNumber(ctx context.Context, number string) (models.Card, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Card, error)
	ListByUser(ctx context.Context, userID string) ([]models.Card, error)
	DebitBalance(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error)
	Attach(ctx context.Context, tx store.Execer, id, userID, walletID string, name *string) (int64, error)
	Detach(ctx context.Context, tx store.Execer, id string) (int64, error)
	Update(ctx context.Context, tx store.Execer, id string, name *string, active *bool) (int64, error)
	Delete(ctx context.Context, tx store.Execer, id string) (int64, error)
}

type CardHistoryStore interface {
	Append(ctx context.Context, tx store.Execer, id, cardID, actorID string, action models.CardAction) error
	ListByCard(ctx context.Context, cardID string) ([]store.CardHistoryEntry, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, trx models.Transaction) error
	Settle(ctx context.Context, tx store.Execer, input store.SettleInput) (int64, error)
	SumBusinessSince(ctx context.Context, businessID string, since time.Time) (int64, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByPhone(ctx context.Context, phone string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
}

type StationStore interface {
	GetByID(ctx context.Context, id string) (models.Station, error)
	IncrementDailyBalance(ctx context.Context, tx store.Execer, id string, amount int64) error
}

type BusinessStore interface {
	GetByID(ctx context.Context, id string) (models.Business, error)
	ActiveProcessor(ctx context.Context) (models.Processor, error)
}

type BankAccountStore interface {
	GetAccount(ctx context.Context, id string) (models.BankAccount, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

type ReferenceGenerator interface {
	Generate(txType models.TransactionType) string
}

// TransferRail pays out to external bank accounts.
type TransferRail interface {
	Initiate(ctx context.Context, input rail.TransferInput) (rail.TransferResult, error)
}

// FundingRail opens temporary accounts customers pay into.
type FundingRail interface {
	CreateVirtualAccount(ctx context.Context, input rail.VirtualAccountInput) (rail.VirtualAccount, error)
}

type OTPVerifier interface {
	Verify(ctx context.Context, code string, purpose models.OTPPurpose, boundIdentifier string) (string, error)
}
