package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/db"
	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/store"
)

type TransferService struct {
	txRunner     db.TxRunner
	wallets      WalletStore
	users        UserStore
	transactions TransactionStore
	ledger       LedgerStore
	refs         ReferenceGenerator
	events       events.Emitter
}

func NewTransferService(txRunner db.TxRunner, wallets WalletStore, users UserStore, transactions TransactionStore, ledger LedgerStore, refs ReferenceGenerator, emitter events.Emitter) *TransferService {
	return &TransferService{
		txRunner:     txRunner,
		wallets:      wallets,
		users:        users,
		transactions: transactions,
		ledger:       ledger,
		refs:         refs,
		events:       emitter,
	}
}

type TransferRequest struct {
	SenderUserID        string
	RecipientIdentifier string
	Amount              int64
	Narration           *string
}

// Transfer moves funds between two personal wallets. Unlike card collections
// it does not count against the daily spend counter.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (models.Transaction, error) {
	if req.Amount <= 0 {
		return models.Transaction{}, apperr.Validation("Amount must be greater than zero")
	}
	recipient, err := resolveUser(ctx, s.users, req.RecipientIdentifier)
	if err != nil {
		return models.Transaction{}, err
	}
	if recipient.ID == req.SenderUserID {
		return models.Transaction{}, apperr.Validation("You cannot transfer to yourself")
	}
	senderWallet, err := s.wallets.GetByUser(ctx, req.SenderUserID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Wallet not found")
	}
	recipientWallet, err := s.wallets.GetByUser(ctx, recipient.ID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Recipient wallet not found")
	}
	if senderWallet.Balance < req.Amount {
		return models.Transaction{}, apperr.InsufficientFunds()
	}

	trx := models.Transaction{
		ID:                   uuid.NewString(),
		TransactionReference: s.refs.Generate(models.TransactionTransfer),
		Type:                 models.TransactionTransfer,
		Status:               models.StatusSuccessful,
		Amount:               req.Amount,
		WalletID:             &senderWallet.ID,
		CreatedByID:          &req.SenderUserID,
		RecipientID:          &recipient.ID,
		Narration:            req.Narration,
	}

	var senderBalance, recipientBalance int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		from, to, err := lockTwoWallets(ctx, tx, s.wallets, senderWallet.ID, recipientWallet.ID)
		if err != nil {
			return err
		}
		if from.Balance < req.Amount {
			return apperr.InsufficientFunds()
		}
		rows, err := s.wallets.Debit(ctx, tx, from.ID, req.Amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.InsufficientFunds()
		}
		if _, err := s.wallets.Credit(ctx, tx, to.ID, req.Amount); err != nil {
			return err
		}
		senderBalance = from.Balance - req.Amount
		recipientBalance = to.Balance + req.Amount

		if err := s.transactions.Create(ctx, tx, trx); err != nil {
			return err
		}
		entries := []store.LedgerEntryInput{
			{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &from.ID, Amount: -req.Amount, Description: "Transfer debit"},
			{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &to.ID, Amount: req.Amount, Description: "Transfer credit"},
		}
		if err := ensureBalanced(entries); err != nil {
			return err
		}
		return s.ledger.InsertEntries(ctx, tx, entries)
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			log.Error().Err(err).Str("sender", req.SenderUserID).Msg("transfer failed")
		}
		return models.Transaction{}, apperr.FromStore(err, "Transfer failed")
	}

	s.events.Emit(events.Event{
		Type:      events.WalletDebited,
		UserID:    req.SenderUserID,
		WalletID:  senderWallet.ID,
		Reference: trx.TransactionReference,
		Amount:    req.Amount,
		Balance:   senderBalance,
	})
	s.events.Emit(events.Event{
		Type:      events.WalletCredited,
		UserID:    recipient.ID,
		WalletID:  recipientWallet.ID,
		Reference: trx.TransactionReference,
		Amount:    req.Amount,
		Balance:   recipientBalance,
	})
	return trx, nil
}
