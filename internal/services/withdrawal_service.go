package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/db"
	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/rail"
	"starkpay/internal/store"
)

const msgWithdrawalFailed = "Failed to make withdrawal request"

type WithdrawalService struct {
	txRunner     db.TxRunner
	wallets      WalletStore
	users        UserStore
	businesses   BusinessStore
	bankAccounts BankAccountStore
	transactions TransactionStore
	ledger       LedgerStore
	refs         ReferenceGenerator
	rail         TransferRail
	events       events.Emitter
	railTimeout  time.Duration
	now          func() time.Time
}

func NewWithdrawalService(txRunner db.TxRunner, wallets WalletStore, users UserStore, businesses BusinessStore, bankAccounts BankAccountStore, transactions TransactionStore, ledger LedgerStore, refs ReferenceGenerator, transferRail TransferRail, emitter events.Emitter, railTimeout time.Duration) *WithdrawalService {
	if railTimeout <= 0 {
		railTimeout = 30 * time.Second
	}
	return &WithdrawalService{
		txRunner:     txRunner,
		wallets:      wallets,
		users:        users,
		businesses:   businesses,
		bankAccounts: bankAccounts,
		transactions: transactions,
		ledger:       ledger,
		refs:         refs,
		rail:         transferRail,
		events:       emitter,
		railTimeout:  railTimeout,
		now:          time.Now,
	}
}

type WithdrawRequest struct {
	WalletID    string
	BankAccount models.BankAccount
	Amount      int64
	// Ceiling caps the amount below the wallet balance, e.g. a business's
	// withdrawable balance. Nil means the wallet balance is the only cap.
	Ceiling     *int64
	Narration   *string
	ActorID     string
	BusinessID  *string
	RecipientID *string
}

// Withdraw reserves the amount under a PENDING withdrawal before asking the
// rail to pay out, so every payout the rail accepts has a row its webhook can
// settle. A rejected or timed-out payout is marked FAILED and the reservation
// is returned to the wallet.
func (s *WithdrawalService) Withdraw(ctx context.Context, req WithdrawRequest) (models.Transaction, error) {
	if req.Amount < MinimumWithdrawal {
		return models.Transaction{}, apperr.New(apperr.KindBelowMinimum, "Amount is below minimum limit of 100")
	}
	wallet, err := s.wallets.GetByID(ctx, req.WalletID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Wallet not found")
	}
	if req.Ceiling != nil && req.Amount > *req.Ceiling {
		return models.Transaction{}, apperr.InsufficientFunds()
	}
	if req.Amount > wallet.Balance {
		return models.Transaction{}, apperr.InsufficientFunds()
	}

	reference := s.refs.Generate(models.TransactionWithdrawal)
	processor := models.ProcessorFlutterwave
	trx := models.Transaction{
		ID:                   uuid.NewString(),
		TransactionReference: reference,
		Type:                 models.TransactionWithdrawal,
		Status:               models.StatusPending,
		Amount:               req.Amount,
		Processor:            &processor,
		WalletID:             &wallet.ID,
		CreatedByID:          &req.ActorID,
		RecipientID:          req.RecipientID,
		BusinessID:           req.BusinessID,
		Narration:            req.Narration,
		CreatedAt:            s.now(),
	}

	var balanceAfter int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.wallets.GetForUpdate(ctx, tx, wallet.ID)
		if err != nil {
			return notFoundOr(err, "Wallet not found")
		}
		if trx.Amount > locked.Balance {
			return apperr.InsufficientFunds()
		}
		rows, err := s.wallets.Debit(ctx, tx, locked.ID, trx.Amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.InsufficientFunds()
		}
		balanceAfter = locked.Balance - trx.Amount
		if err := s.transactions.Create(ctx, tx, trx); err != nil {
			return err
		}
		return s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{
			{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &locked.ID, Amount: -trx.Amount, Description: "Withdrawal to bank"},
		})
	})
	if err != nil {
		return models.Transaction{}, apperr.FromStore(err, msgWithdrawalFailed)
	}

	narration := ""
	if req.Narration != nil {
		narration = *req.Narration
	}
	railCtx, cancel := context.WithTimeout(ctx, s.railTimeout)
	result, railErr := s.rail.Initiate(railCtx, rail.TransferInput{
		Amount:        trx.Amount,
		BankCode:      req.BankAccount.BankCode,
		AccountNumber: req.BankAccount.Number,
		Reference:     reference,
		Narration:     narration,
	})
	cancel()
	if railErr != nil {
		return models.Transaction{}, s.release(ctx, trx, railErr)
	}

	if result.Amount > 0 && result.Amount != trx.Amount {
		log.Warn().Str("reference", reference).Int64("reserved", trx.Amount).Int64("confirmed", result.Amount).Msg("rail confirmed a different payout amount")
	}
	if result.Status != "" {
		trx.ProcessorStatus = &result.Status
	}
	if result.ProviderReference != "" {
		trx.ProcessorTrxID = &result.ProviderReference
	}
	if trx.ProcessorStatus != nil || trx.ProcessorTrxID != nil {
		// Settlement is keyed by reference, so a failure here only loses the
		// rail's own ids.
		err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			_, err := s.transactions.Settle(ctx, tx, store.SettleInput{
				ID:              trx.ID,
				Status:          models.StatusPending,
				ProcessorStatus: trx.ProcessorStatus,
				ProcessorTrxID:  trx.ProcessorTrxID,
			})
			return err
		})
		if err != nil {
			log.Error().Err(err).Str("reference", reference).Msg("failed to record rail transfer id")
		}
	}

	s.events.Emit(events.Event{
		Type:      events.WalletDebited,
		UserID:    wallet.OwnerID(),
		WalletID:  wallet.ID,
		Reference: reference,
		Amount:    trx.Amount,
		Balance:   balanceAfter,
	})
	return trx, nil
}

// release marks a reserved withdrawal FAILED and credits the reservation back.
// A withdrawal the webhook already settled is left alone.
func (s *WithdrawalService) release(ctx context.Context, trx models.Transaction, railErr error) error {
	message := msgWithdrawalFailed
	var apiErr *rail.APIError
	if errors.As(railErr, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}
	log.Warn().Err(railErr).Str("reference", trx.TransactionReference).Msg("transfer rail rejected withdrawal")

	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.transactions.Settle(ctx, tx, store.SettleInput{ID: trx.ID, Status: models.StatusFailed})
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		locked, err := s.wallets.GetForUpdate(ctx, tx, *trx.WalletID)
		if err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, tx, locked.ID, trx.Amount); err != nil {
			return err
		}
		return s.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{
			{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &locked.ID, Amount: trx.Amount, Description: "Withdrawal reversal"},
		})
	})
	if err != nil {
		log.Error().Err(err).Str("reference", trx.TransactionReference).Str("wallet_id", *trx.WalletID).Msg("failed to release withdrawal reservation")
	}
	return apperr.Wrap(apperr.KindServiceUnavailable, message, railErr)
}

type UserWithdrawRequest struct {
	UserID    string
	Amount    int64
	Password  string
	Narration *string
}

func (s *WithdrawalService) UserWithdraw(ctx context.Context, req UserWithdrawRequest) (models.Transaction, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "User not found")
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return models.Transaction{}, apperr.Forbidden("Incorrect password")
	}
	account, err := s.payoutAccount(ctx, user.BankAccount)
	if err != nil {
		return models.Transaction{}, err
	}
	wallet, err := s.wallets.GetByUser(ctx, user.ID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Wallet not found")
	}
	return s.Withdraw(ctx, WithdrawRequest{
		WalletID:    wallet.ID,
		BankAccount: account,
		Amount:      req.Amount,
		Narration:   req.Narration,
		ActorID:     user.ID,
		RecipientID: &user.ID,
	})
}

type BusinessWithdrawRequest struct {
	UserID   string
	Amount   int64
	Password string
}

func (s *WithdrawalService) BusinessWithdraw(ctx context.Context, req BusinessWithdrawRequest) (models.Transaction, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "User not found")
	}
	if user.BusinessID == nil {
		return models.Transaction{}, apperr.Forbidden("Only business accounts can withdraw business funds")
	}
	business, err := s.businesses.GetByID(ctx, *user.BusinessID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Business not found")
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return models.Transaction{}, apperr.Forbidden("Incorrect password")
	}
	account, err := s.payoutAccount(ctx, business.BankAccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	wallet, err := s.wallets.GetByBusiness(ctx, business.ID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Wallet not found")
	}
	ceiling, err := s.withdrawable(ctx, business, wallet)
	if err != nil {
		return models.Transaction{}, err
	}
	narration := "StarkPay Payout to " + business.Name
	return s.Withdraw(ctx, WithdrawRequest{
		WalletID:    wallet.ID,
		BankAccount: account,
		Amount:      req.Amount,
		Ceiling:     &ceiling,
		Narration:   &narration,
		ActorID:     user.ID,
		BusinessID:  &business.ID,
	})
}

// BusinessWithdrawable is what a business may pay out now: the wallet balance
// less the platform service fee and less everything collected inside the
// rail's settlement window.
func (s *WithdrawalService) BusinessWithdrawable(ctx context.Context, businessID string) (int64, error) {
	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		return 0, notFoundOr(err, "Business not found")
	}
	wallet, err := s.wallets.GetByBusiness(ctx, businessID)
	if err != nil {
		return 0, notFoundOr(err, "Wallet not found")
	}
	return s.withdrawable(ctx, business, wallet)
}

func (s *WithdrawalService) withdrawable(ctx context.Context, business models.Business, wallet models.Wallet) (int64, error) {
	percentage := decimal.Zero
	if business.ServiceFeePercentage != "" {
		parsed, err := decimal.NewFromString(business.ServiceFeePercentage)
		if err != nil {
			return 0, fmt.Errorf("parse service fee percentage for business %s: %w", business.ID, err)
		}
		percentage = parsed
	}
	recent, err := s.transactions.SumBusinessSince(ctx, business.ID, s.now().Add(-SettlementLag))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindServiceUnavailable, "Unable to compute withdrawable balance", err)
	}
	balance := decimal.NewFromInt(wallet.Balance)
	serviceFee := percentage.Div(decimal.NewFromInt(100)).Mul(balance)
	available := balance.Sub(serviceFee).Sub(decimal.NewFromInt(recent)).Truncate(0).IntPart()
	if available < 0 {
		return 0, nil
	}
	return available, nil
}

func (s *WithdrawalService) payoutAccount(ctx context.Context, accountID *string) (models.BankAccount, error) {
	if accountID == nil {
		return models.BankAccount{}, apperr.Validation("Please add a bank account first.")
	}
	account, err := s.bankAccounts.GetAccount(ctx, *accountID)
	if err != nil {
		if store.IsNotFound(err) {
			return models.BankAccount{}, apperr.Validation("Please add a bank account first.")
		}
		return models.BankAccount{}, err
	}
	return account, nil
}
