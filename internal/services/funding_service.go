package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/db"
	"starkpay/internal/models"
	"starkpay/internal/rail"
)

// FundingService opens PENDING fund-wallet transactions. The money only lands
// when the processor's webhook is reconciled.
type FundingService struct {
	txRunner     db.TxRunner
	wallets      WalletStore
	users        UserStore
	businesses   BusinessStore
	transactions TransactionStore
	refs         ReferenceGenerator
	rail         FundingRail
}

func NewFundingService(txRunner db.TxRunner, wallets WalletStore, users UserStore, businesses BusinessStore, transactions TransactionStore, refs ReferenceGenerator, fundingRail FundingRail) *FundingService {
	return &FundingService{
		txRunner:     txRunner,
		wallets:      wallets,
		users:        users,
		businesses:   businesses,
		transactions: transactions,
		refs:         refs,
		rail:         fundingRail,
	}
}

type FundingAccount struct {
	Reference     string `json:"reference"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

func (s *FundingService) FundWithBankTransfer(ctx context.Context, userID string, amount int64) (FundingAccount, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return FundingAccount{}, notFoundOr(err, "User not found")
	}
	return s.fundWithBankTransfer(ctx, user, amount)
}

// AgentFundWithBankTransfer lets an agent open a funding account on behalf of
// the user named by identifier.
func (s *FundingService) AgentFundWithBankTransfer(ctx context.Context, identifier string, amount int64) (FundingAccount, error) {
	user, err := resolveUser(ctx, s.users, identifier)
	if err != nil {
		return FundingAccount{}, err
	}
	return s.fundWithBankTransfer(ctx, user, amount)
}

func (s *FundingService) fundWithBankTransfer(ctx context.Context, user models.User, amount int64) (FundingAccount, error) {
	wallet, err := s.checkFundingLimits(ctx, user.ID, amount)
	if err != nil {
		return FundingAccount{}, err
	}

	reference := s.refs.Generate(models.TransactionFundWallet)
	name := user.Username
	account, err := s.rail.CreateVirtualAccount(ctx, rail.VirtualAccountInput{
		Email:     user.Email,
		Name:      name,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("failed to create funding account")
		return FundingAccount{}, apperr.Wrap(apperr.KindServiceUnavailable, "Failed to create bank account", err)
	}

	processor := models.ProcessorFlutterwave
	trx := models.Transaction{
		ID:                   uuid.NewString(),
		TransactionReference: reference,
		Type:                 models.TransactionFundWallet,
		Status:               models.StatusPending,
		Amount:               amount,
		Processor:            &processor,
		WalletID:             &wallet.ID,
		RecipientID:          &user.ID,
	}
	if err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transactions.Create(ctx, tx, trx)
	}); err != nil {
		return FundingAccount{}, apperr.FromStore(err, "Failed to create bank account")
	}

	return FundingAccount{
		Reference:     reference,
		BankName:      account.BankName,
		AccountNumber: account.AccountNumber,
		AccountName:   name + " (StarkPay)",
	}, nil
}

// FundWithCard records a PENDING card funding under the reference the client
// used for the processor's checkout.
func (s *FundingService) FundWithCard(ctx context.Context, userID string, amount int64, reference string) (models.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return models.Transaction{}, apperr.Validation("Transaction reference is required")
	}
	wallet, err := s.checkFundingLimits(ctx, userID, amount)
	if err != nil {
		return models.Transaction{}, err
	}
	trx := models.Transaction{
		ID:                   uuid.NewString(),
		TransactionReference: reference,
		Type:                 models.TransactionFundWallet,
		Status:               models.StatusPending,
		Amount:               amount,
		WalletID:             &wallet.ID,
		RecipientID:          &userID,
	}
	if processor, err := s.businesses.ActiveProcessor(ctx); err == nil && processor != "" {
		trx.Processor = &processor
	}
	if err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transactions.Create(ctx, tx, trx)
	}); err != nil {
		return models.Transaction{}, apperr.FromStore(err, "Failed to create transaction")
	}
	return trx, nil
}

// ActiveProcessor is the processor clients should use for card checkout.
func (s *FundingService) ActiveProcessor(ctx context.Context) (models.Processor, error) {
	processor, err := s.businesses.ActiveProcessor(ctx)
	if err != nil {
		return "", apperr.Wrap(apperr.KindServiceUnavailable, "Unable to load payment processor", err)
	}
	return processor, nil
}

func (s *FundingService) checkFundingLimits(ctx context.Context, userID string, amount int64) (models.Wallet, error) {
	if amount <= 0 {
		return models.Wallet{}, apperr.Validation("Amount must be greater than zero")
	}
	if amount > MaxFundingAmount {
		return models.Wallet{}, apperr.New(apperr.KindLimitExceeded, "Your cannot fund with more than 50,000 at once.")
	}
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return models.Wallet{}, notFoundOr(err, "Wallet not found")
	}
	if wallet.Balance+amount > MaxWalletBalance {
		return models.Wallet{}, apperr.New(apperr.KindLimitExceeded, "Your cannot have more than NGN 300,000 in your wallet")
	}
	return wallet, nil
}
