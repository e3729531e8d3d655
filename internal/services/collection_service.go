package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/cardsecret"
	"starkpay/internal/db"
	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/money"
	"starkpay/internal/store"
)

// Collector identifies who is taking a card payment. It is either a
// StationCollector or a MerchantCollector.
type Collector interface {
	collector()
}

type StationCollector struct {
	StationID string
}

type MerchantCollector struct {
	UserID string
}

func (StationCollector) collector()  {}
func (MerchantCollector) collector() {}

type CollectRequest struct {
	Collector  Collector
	CardID     string
	CardSecret string
	Amount     int64
	Password   string
}

// destination is the collector resolved into the wallet that receives funds.
type destination struct {
	walletID    string
	recipientID *string
	businessID  *string
	stationID   *string
}

type CollectionService struct {
	txRunner     db.TxRunner
	wallets      WalletStore
	cards        CardStore
	users        UserStore
	stations     StationStore
	transactions TransactionStore
	ledger       LedgerStore
	refs         ReferenceGenerator
	events       events.Emitter
	loc          *time.Location
	now          func() time.Time
}

func NewCollectionService(txRunner db.TxRunner, wallets WalletStore, cards CardStore, users UserStore, stations StationStore, transactions TransactionStore, ledger LedgerStore, refs ReferenceGenerator, emitter events.Emitter, loc *time.Location) *CollectionService {
	if loc == nil {
		loc = time.UTC
	}
	return &CollectionService{
		txRunner:     txRunner,
		wallets:      wallets,
		cards:        cards,
		users:        users,
		stations:     stations,
		transactions: transactions,
		ledger:       ledger,
		refs:         refs,
		events:       emitter,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *CollectionService) Collect(ctx context.Context, req CollectRequest) (models.Transaction, error) {
	if req.Amount <= 0 {
		return models.Transaction{}, apperr.Validation("Amount must be greater than zero")
	}
	if req.Amount > MaxCollectionAmount {
		return models.Transaction{}, apperr.New(apperr.KindLimitExceeded, "Sorry, you cannot send more than ₦15,000 at a time.")
	}
	if req.CardID == "" || req.CardSecret == "" {
		return models.Transaction{}, apperr.Validation("Card id and card secret are required")
	}

	dest, amount, err := s.resolveDestination(ctx, req.Collector, req.Amount)
	if err != nil {
		return models.Transaction{}, err
	}

	card, err := s.cards.GetByID(ctx, req.CardID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, "Card not found")
	}
	if err := checkCardUsable(card); err != nil {
		return models.Transaction{}, err
	}
	if *card.WalletID == dest.walletID {
		return models.Transaction{}, apperr.Validation("You cannot pay into your own wallet")
	}
	if ok, err := cardsecret.Verify(req.CardSecret, card.Hash); err != nil || !ok {
		return models.Transaction{}, apperr.Forbidden("Invalid card secret")
	}
	if amount > PasswordThreshold {
		holder, err := s.users.GetByID(ctx, *card.UserID)
		if err != nil {
			return models.Transaction{}, notFoundOr(err, "Card not found")
		}
		if !auth.CheckPassword(holder.PasswordHash, req.Password) {
			return models.Transaction{}, apperr.Forbidden("Incorrect password")
		}
	}

	available, err := s.availableBalance(ctx, card)
	if err != nil {
		return models.Transaction{}, err
	}
	if available < amount {
		return models.Transaction{}, apperr.InsufficientFunds()
	}

	now := s.now()
	trx := models.Transaction{
		ID:                   uuid.NewString(),
		TransactionReference: s.refs.Generate(models.TransactionPayment),
		Type:                 models.TransactionPayment,
		Status:               models.StatusSuccessful,
		Amount:               amount,
		WalletID:             card.WalletID,
		CardID:               &card.ID,
		CreatedByID:          card.UserID,
		RecipientID:          dest.recipientID,
		BusinessID:           dest.businessID,
		StationID:            dest.stationID,
		CreatedAt:            now,
	}

	var payerBalance, recipientBalance int64
	var payerOwner, recipientOwner string
	var cardScoped bool
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.cards.GetForUpdate(ctx, tx, card.ID)
		if err != nil {
			return notFoundOr(err, "Card not found")
		}
		if err := checkCardUsable(locked); err != nil {
			return err
		}
		var entries []store.LedgerEntryInput
		cardScoped = locked.Balance != nil
		if cardScoped {
			payerBalance, recipientBalance, recipientOwner, err = s.collectFromCard(ctx, tx, locked, dest.walletID, amount)
			if err != nil {
				return err
			}
			payerOwner = *locked.UserID
			entries = []store.LedgerEntryInput{
				{ID: uuid.NewString(), TransactionID: trx.ID, CardID: &locked.ID, Amount: -amount, Description: "Card payment debit"},
				{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &dest.walletID, Amount: amount, Description: "Card payment credit"},
			}
		} else {
			source, target, err := lockTwoWallets(ctx, tx, s.wallets, *locked.WalletID, dest.walletID)
			if err != nil {
				return err
			}
			if source.Balance < amount {
				return apperr.InsufficientFunds()
			}
			counter := source.TotalTransactionAmountToday
			if source.LatestTransactionTimestamp == nil || !sameDay(*source.LatestTransactionTimestamp, now, s.loc) {
				counter = 0
			}
			if counter+amount > DailyCollectionLimit {
				return apperr.New(apperr.KindDailyLimitExceeded, fmt.Sprintf(
					"Daily transaction limit reached. You cannot spend more than ₦%s for the rest of the day",
					money.FormatMinor(DailyCollectionLimit-counter)))
			}
			rows, err := s.wallets.DebitWithDailyCounter(ctx, tx, source.ID, amount, counter+amount, now)
			if err != nil {
				return err
			}
			if rows == 0 {
				return apperr.InsufficientFunds()
			}
			if _, err := s.wallets.Credit(ctx, tx, target.ID, amount); err != nil {
				return err
			}
			if dest.stationID != nil {
				if err := s.stations.IncrementDailyBalance(ctx, tx, *dest.stationID, amount); err != nil {
					return err
				}
			}
			payerBalance, payerOwner = source.Balance-amount, source.OwnerID()
			recipientBalance, recipientOwner = target.Balance+amount, target.OwnerID()
			entries = []store.LedgerEntryInput{
				{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &source.ID, Amount: -amount, Description: "Card payment debit"},
				{ID: uuid.NewString(), TransactionID: trx.ID, WalletID: &target.ID, Amount: amount, Description: "Card payment credit"},
			}
		}
		if err := s.transactions.Create(ctx, tx, trx); err != nil {
			return err
		}
		if err := ensureBalanced(entries); err != nil {
			return err
		}
		return s.ledger.InsertEntries(ctx, tx, entries)
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			log.Error().Err(err).Str("card_id", card.ID).Msg("card payment failed")
		}
		return models.Transaction{}, apperr.FromStore(err, "Payment failed")
	}

	s.events.Emit(events.Event{
		Type:      events.WalletCredited,
		UserID:    recipientOwner,
		WalletID:  dest.walletID,
		Reference: trx.TransactionReference,
		Amount:    amount,
		Balance:   recipientBalance,
	})
	debited := events.Event{
		Type:      events.WalletDebited,
		UserID:    payerOwner,
		WalletID:  *card.WalletID,
		Reference: trx.TransactionReference,
		Amount:    amount,
		Balance:   payerBalance,
		Data:      map[string]string{"card_id": card.ID},
	}
	if cardScoped {
		// The wallet did not move; Balance is the card's remaining allowance.
		debited.Type = events.CardDebited
		debited.WalletID = ""
	}
	s.events.Emit(debited)
	return trx, nil
}

// collectFromCard moves a restricted card's own allowance into the
// destination wallet. The daily counter does not apply.
func (s *CollectionService) collectFromCard(ctx context.Context, tx *sqlx.Tx, card models.Card, walletID string, amount int64) (int64, int64, string, error) {
	if *card.Balance < amount {
		return 0, 0, "", apperr.InsufficientFunds()
	}
	target, err := s.wallets.GetForUpdate(ctx, tx, walletID)
	if err != nil {
		return 0, 0, "", notFoundOr(err, "Wallet not found")
	}
	rows, err := s.cards.DebitBalance(ctx, tx, card.ID, amount)
	if err != nil {
		return 0, 0, "", err
	}
	if rows == 0 {
		return 0, 0, "", apperr.InsufficientFunds()
	}
	if _, err := s.wallets.Credit(ctx, tx, target.ID, amount); err != nil {
		return 0, 0, "", err
	}
	return *card.Balance - amount, target.Balance + amount, target.OwnerID(), nil
}

func (s *CollectionService) resolveDestination(ctx context.Context, collector Collector, amount int64) (destination, int64, error) {
	switch c := collector.(type) {
	case StationCollector:
		station, err := s.stations.GetByID(ctx, c.StationID)
		if err != nil {
			return destination{}, 0, notFoundOr(err, "Station not found")
		}
		wallet, err := s.wallets.GetByBusiness(ctx, station.BusinessID)
		if err != nil {
			return destination{}, 0, notFoundOr(err, "Wallet not found")
		}
		if station.AmountIsFixed {
			amount = station.Amount
		}
		return destination{
			walletID:    wallet.ID,
			recipientID: wallet.UserID,
			businessID:  &station.BusinessID,
			stationID:   &station.ID,
		}, amount, nil
	case MerchantCollector:
		merchant, err := s.users.GetByID(ctx, c.UserID)
		if err != nil {
			return destination{}, 0, notFoundOr(err, "Merchant not found")
		}
		wallet, err := s.wallets.GetByUser(ctx, merchant.ID)
		if err != nil {
			return destination{}, 0, notFoundOr(err, "Wallet not found")
		}
		return destination{
			walletID:    wallet.ID,
			recipientID: &merchant.ID,
			businessID:  merchant.BusinessID,
		}, amount, nil
	}
	return destination{}, 0, apperr.Validation("Unknown collector")
}

func (s *CollectionService) availableBalance(ctx context.Context, card models.Card) (int64, error) {
	if card.Balance != nil {
		return *card.Balance, nil
	}
	wallet, err := s.wallets.GetByID(ctx, *card.WalletID)
	if err != nil {
		return 0, notFoundOr(err, "Wallet not found")
	}
	return wallet.Balance, nil
}

func checkCardUsable(card models.Card) error {
	if !card.Bound() {
		return apperr.NotFound("Card not found")
	}
	if !card.Active {
		return apperr.New(apperr.KindInactive, "Card is inactive")
	}
	return nil
}
