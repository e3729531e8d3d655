// Package reconcile applies processor webhook outcomes to the ledger exactly
// once. Every outcome is guarded by a conditional update on a PENDING row so
// duplicate deliveries are harmless.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/db"
	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/store"
)

type TransactionStore interface {
	GetByReferenceForUpdate(ctx context.Context, tx store.Getter, reference string) (models.Transaction, error)
	Create(ctx context.Context, tx store.Execer, trx models.Transaction) error
	Settle(ctx context.Context, tx store.Execer, input store.SettleInput) (int64, error)
}

type WalletStore interface {
	GetByUser(ctx context.Context, userID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	Credit(ctx context.Context, tx store.Execer, walletID string, amount int64) (int64, error)
	Debit(ctx context.Context, tx store.Execer, walletID string, amount int64) (int64, error)
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

// FundingEvent is an inbound payment reported by a processor.
type FundingEvent struct {
	Processor       models.Processor
	Reference       string
	ProcessorTrxID  string
	ProcessorStatus string
	Success         bool
	Amount          int64
	CustomerEmail   string
}

// PayoutEvent is the final status of a withdrawal sent through the rail.
type PayoutEvent struct {
	Reference       string
	ProcessorStatus string
	Success         bool
	Fee             int64
}

type Reconciler struct {
	txRunner     db.TxRunner
	transactions TransactionStore
	wallets      WalletStore
	users        UserStore
	ledger       LedgerStore
	audit        AuditStore
	events       events.Emitter
}

func New(txRunner db.TxRunner, transactions TransactionStore, wallets WalletStore, users UserStore, ledger LedgerStore, audit AuditStore, emitter events.Emitter) *Reconciler {
	return &Reconciler{
		txRunner:     txRunner,
		transactions: transactions,
		wallets:      wallets,
		users:        users,
		ledger:       ledger,
		audit:        audit,
		events:       emitter,
	}
}

// ReconcileFunding settles a pending FUND_WALLET transaction, or records a
// new terminal one when the payment arrived without a pre-created row. It
// reports whether anything changed.
func (r *Reconciler) ReconcileFunding(ctx context.Context, event FundingEvent) (bool, error) {
	if event.Reference == "" {
		return false, apperr.Validation("Missing transaction reference")
	}
	status := models.StatusFailed
	if event.Success {
		status = models.StatusSuccessful
	}

	var (
		applied  bool
		credited *events.Event
	)
	err := r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		applied, credited = false, nil
		existing, err := r.transactions.GetByReferenceForUpdate(ctx, tx, event.Reference)
		switch {
		case err == nil:
			if existing.Type != models.TransactionFundWallet {
				return apperr.Validation("Reference does not belong to a wallet funding")
			}
			if existing.Status.Terminal() {
				return nil
			}
			if existing.ProcessorStatus != nil && *existing.ProcessorStatus == event.ProcessorStatus {
				return nil
			}
			payer, err := r.customer(ctx, event.CustomerEmail)
			if err != nil {
				return err
			}
			if existing.RecipientID == nil || *existing.RecipientID != payer.ID {
				log.Warn().Str("reference", event.Reference).Str("payer_id", payer.ID).Msg("funding paid by someone other than its requester")
				return apperr.Forbidden("Payment does not belong to this funding request")
			}
			rows, err := r.transactions.Settle(ctx, tx, store.SettleInput{
				ID:              existing.ID,
				Status:          status,
				ProcessorStatus: optional(event.ProcessorStatus),
				ProcessorTrxID:  optional(event.ProcessorTrxID),
			})
			if err != nil {
				return err
			}
			if rows == 0 {
				return nil
			}
			applied = true
			if event.Success && existing.WalletID != nil {
				credited, err = r.credit(ctx, tx, existing.ID, *existing.WalletID, event)
				if err != nil {
					return err
				}
			}
			return r.audit.Log(ctx, tx, "", "funding."+string(status), "transaction", existing.ID, event)
		case store.IsNotFound(err):
			user, err := r.customer(ctx, event.CustomerEmail)
			if err != nil {
				return err
			}
			wallet, err := r.wallets.GetByUser(ctx, user.ID)
			if err != nil {
				if store.IsNotFound(err) {
					return apperr.NotFound("Wallet not found")
				}
				return err
			}
			processor := event.Processor
			trx := models.Transaction{
				ID:                   uuid.NewString(),
				TransactionReference: event.Reference,
				Type:                 models.TransactionFundWallet,
				Status:               status,
				Amount:               event.Amount,
				Processor:            &processor,
				ProcessorStatus:      optional(event.ProcessorStatus),
				ProcessorTrxID:       optional(event.ProcessorTrxID),
				WalletID:             &wallet.ID,
				RecipientID:          &user.ID,
				CreatedAt:            time.Now(),
			}
			if err := r.transactions.Create(ctx, tx, trx); err != nil {
				return err
			}
			applied = true
			if event.Success {
				credited, err = r.credit(ctx, tx, trx.ID, wallet.ID, event)
				if err != nil {
					return err
				}
			}
			return r.audit.Log(ctx, tx, "", "funding."+string(status), "transaction", trx.ID, event)
		default:
			return err
		}
	})
	if err != nil {
		log.Error().Err(err).Str("reference", event.Reference).Str("processor", string(event.Processor)).Msg("funding reconciliation failed")
		return false, apperr.FromStore(err, "Funding reconciliation failed")
	}
	if !applied {
		log.Info().Str("reference", event.Reference).Msg("duplicate funding notification ignored")
	}
	if credited != nil {
		r.events.Emit(*credited)
	}
	return applied, nil
}

func (r *Reconciler) customer(ctx context.Context, email string) (models.User, error) {
	if email == "" {
		return models.User{}, apperr.NotFound("Customer not found")
	}
	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return models.User{}, apperr.NotFound("Customer not found")
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *Reconciler) credit(ctx context.Context, tx *sqlx.Tx, transactionID, walletID string, event FundingEvent) (*events.Event, error) {
	wallet, err := r.wallets.GetForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, err
	}
	if _, err := r.wallets.Credit(ctx, tx, wallet.ID, event.Amount); err != nil {
		return nil, err
	}
	if err := r.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{
		{ID: uuid.NewString(), TransactionID: transactionID, WalletID: &wallet.ID, Amount: event.Amount, Description: "Wallet funding"},
	}); err != nil {
		return nil, err
	}
	return &events.Event{
		Type:      events.WalletFunded,
		UserID:    wallet.OwnerID(),
		WalletID:  wallet.ID,
		Reference: event.Reference,
		Amount:    event.Amount,
		Balance:   wallet.Balance + event.Amount,
		Data:      map[string]string{"processor": string(event.Processor)},
	}, nil
}

// ReconcilePayout finishes a PENDING withdrawal. A successful payout is
// charged the rail's fee; a failed one refunds the principal.
func (r *Reconciler) ReconcilePayout(ctx context.Context, event PayoutEvent) (bool, error) {
	if event.Reference == "" {
		return false, apperr.Validation("Missing transaction reference")
	}
	var (
		applied bool
		settled events.Event
	)
	err := r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		applied = false
		trx, err := r.transactions.GetByReferenceForUpdate(ctx, tx, event.Reference)
		if err != nil {
			if store.IsNotFound(err) {
				return apperr.NotFound("Transaction not found")
			}
			return err
		}
		if trx.Type != models.TransactionWithdrawal {
			return apperr.Validation("Reference does not belong to a withdrawal")
		}
		if trx.Status.Terminal() || trx.WalletID == nil {
			return nil
		}

		input := store.SettleInput{ID: trx.ID, ProcessorStatus: optional(event.ProcessorStatus)}
		if event.Success {
			input.Status = models.StatusSuccessful
			input.Fee = &event.Fee
		} else {
			input.Status = models.StatusFailed
		}
		rows, err := r.transactions.Settle(ctx, tx, input)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		applied = true

		wallet, err := r.wallets.GetForUpdate(ctx, tx, *trx.WalletID)
		if err != nil {
			return err
		}
		settled = events.Event{
			UserID:    wallet.OwnerID(),
			WalletID:  wallet.ID,
			Reference: trx.TransactionReference,
			Amount:    trx.Amount,
			Balance:   wallet.Balance,
		}

		var entry store.LedgerEntryInput
		if event.Success {
			settled.Type = events.WithdrawalSettled
			if event.Fee > 0 {
				debited, err := r.wallets.Debit(ctx, tx, wallet.ID, event.Fee)
				if err != nil {
					return err
				}
				if debited == 0 {
					log.Warn().Str("reference", trx.TransactionReference).Int64("fee", event.Fee).Msg("wallet could not cover payout fee")
				} else {
					settled.Balance -= event.Fee
					entry = store.LedgerEntryInput{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &wallet.ID, Amount: -event.Fee, Description: "Withdrawal fee"}
				}
			}
		} else {
			settled.Type = events.WithdrawalFailed
			if _, err := r.wallets.Credit(ctx, tx, wallet.ID, trx.Amount); err != nil {
				return err
			}
			settled.Balance += trx.Amount
			entry = store.LedgerEntryInput{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &wallet.ID, Amount: trx.Amount, Description: "Withdrawal refund"}
		}
		if entry.ID != "" {
			if err := r.ledger.InsertEntries(ctx, tx, []store.LedgerEntryInput{entry}); err != nil {
				return err
			}
		}
		return r.audit.Log(ctx, tx, "", "withdrawal."+string(input.Status), "transaction", trx.ID, event)
	})
	if err != nil {
		log.Error().Err(err).Str("reference", event.Reference).Msg("payout reconciliation failed")
		return false, apperr.FromStore(err, "Payout reconciliation failed")
	}
	if !applied {
		log.Info().Str("reference", event.Reference).Msg("duplicate payout notification ignored")
		return false, nil
	}
	r.events.Emit(settled)
	return true, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
