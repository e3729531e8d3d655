package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkpay/internal/apperr"
	"starkpay/internal/auth"
	"starkpay/internal/cardsecret"
	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/money"
	"starkpay/internal/store"
)

var collectionNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type collectionFixture struct {
	service      *CollectionService
	wallets      *stubWalletStore
	cards        *stubCardStore
	stations     *stubStationStore
	transactions *stubTransactionStore
	ledger       *stubLedgerStore
	emitter      *stubEmitter
	secret       string
	card         models.Card
	payer        models.Wallet
	business     models.Wallet

	debitedCounter int64
	debitedAmount  int64
}

func newCollectionFixture(t *testing.T, txErr error) *collectionFixture {
	t.Helper()
	secret, hash, err := cardsecret.New()
	require.NoError(t, err)
	password, err := auth.HashPassword("2580")
	require.NoError(t, err)

	f := &collectionFixture{secret: secret}
	f.card = models.Card{
		ID:       "card-1",
		Hash:     hash,
		UserID:   stringPtr("holder"),
		WalletID: stringPtr("w-payer"),
		Active:   true,
	}
	f.payer = models.Wallet{ID: "w-payer", UserID: stringPtr("holder"), Balance: money.Naira(40_000)}
	f.business = models.Wallet{ID: "w-biz", BusinessID: stringPtr("biz-1"), Balance: money.Naira(1_000)}

	f.wallets = &stubWalletStore{
		getByIDFn: func(_ context.Context, id string) (models.Wallet, error) {
			return f.payer, nil
		},
		getByBusinessFn: func(context.Context, string) (models.Wallet, error) {
			return f.business, nil
		},
		getByUserFn: func(_ context.Context, userID string) (models.Wallet, error) {
			return models.Wallet{ID: "w-merchant", UserID: stringPtr(userID)}, nil
		},
		getForUpdateFn: func(_ context.Context, _ store.Getter, id string) (models.Wallet, error) {
			switch id {
			case f.payer.ID:
				return f.payer, nil
			case f.business.ID:
				return f.business, nil
			}
			return models.Wallet{ID: id}, nil
		},
		debitCounterFn: func(_ context.Context, _ store.Execer, _ string, amount, counter int64, _ time.Time) (int64, error) {
			f.debitedAmount = amount
			f.debitedCounter = counter
			return 1, nil
		},
	}
	f.cards = &stubCardStore{
		getByIDFn: func(context.Context, string) (models.Card, error) {
			return f.card, nil
		},
	}
	users := &stubUserStore{
		getByIDFn: func(_ context.Context, id string) (models.User, error) {
			return models.User{ID: id, PasswordHash: password}, nil
		},
	}
	f.stations = &stubStationStore{station: models.Station{ID: "st-1", BusinessID: "biz-1"}}
	f.transactions = &stubTransactionStore{}
	f.ledger = &stubLedgerStore{}
	f.emitter = &stubEmitter{}
	f.service = NewCollectionService(fakeTxRunner{err: txErr}, f.wallets, f.cards, users, f.stations, f.transactions, f.ledger, stubRefs{}, f.emitter, time.UTC)
	f.service.now = func() time.Time { return collectionNow }
	return f
}

func (f *collectionFixture) request(amount int64) CollectRequest {
	return CollectRequest{
		Collector:  StationCollector{StationID: "st-1"},
		CardID:     f.card.ID,
		CardSecret: f.secret,
		Amount:     amount,
		Password:   "2580",
	}
}

func TestCollectRejectsAmountAboveTapLimit(t *testing.T) {
	f := newCollectionFixture(t, nil)
	_, err := f.service.Collect(context.Background(), f.request(MaxCollectionAmount+1))
	require.Error(t, err)
	assert.Equal(t, apperr.KindLimitExceeded, apperr.KindOf(err))
	assert.Empty(t, f.transactions.created)
}

func TestCollectStationWalletScoped(t *testing.T) {
	f := newCollectionFixture(t, nil)
	yesterday := collectionNow.Add(-24 * time.Hour)
	f.payer.LatestTransactionTimestamp = &yesterday
	f.payer.TotalTransactionAmountToday = money.Naira(49_000)

	trx, err := f.service.Collect(context.Background(), f.request(money.Naira(2_000)))
	require.NoError(t, err)

	assert.Equal(t, money.Naira(2_000), f.debitedAmount)
	assert.Equal(t, money.Naira(2_000), f.debitedCounter, "counter resets on a new day")
	assert.Equal(t, []int64{money.Naira(2_000)}, f.stations.incremented)

	require.Len(t, f.transactions.created, 1)
	assert.Equal(t, models.TransactionPayment, trx.Type)
	assert.Equal(t, models.StatusSuccessful, trx.Status)
	assert.Equal(t, "st-1", *trx.StationID)
	assert.Equal(t, "biz-1", *trx.BusinessID)
	assert.Equal(t, "holder", *trx.CreatedByID)
	assert.Equal(t, "card-1", *trx.CardID)

	require.Len(t, f.ledger.entries, 2)
	assert.NoError(t, ensureBalanced(f.ledger.entries))

	assert.Equal(t, []events.Type{events.WalletCredited, events.WalletDebited}, f.emitter.types())
	credited := f.emitter.events[0]
	assert.Equal(t, "biz-1", credited.UserID)
	assert.Equal(t, money.Naira(3_000), credited.Balance)
}

func TestCollectDailyLimitExceeded(t *testing.T) {
	f := newCollectionFixture(t, nil)
	earlier := collectionNow.Add(-time.Hour)
	f.payer.LatestTransactionTimestamp = &earlier
	f.payer.TotalTransactionAmountToday = money.Naira(49_000)

	_, err := f.service.Collect(context.Background(), f.request(money.Naira(2_000)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindDailyLimitExceeded, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err, ""), "₦1000.00")
	assert.Zero(t, f.debitedAmount)
	assert.Empty(t, f.transactions.created)
	assert.Empty(t, f.emitter.types())
}

func TestCollectCardScopedSkipsDailyCounter(t *testing.T) {
	f := newCollectionFixture(t, nil)
	f.card.Balance = int64Ptr(money.Naira(300))
	var cardDebited int64
	f.cards.debitFn = func(_ context.Context, _ store.Execer, _ string, amount int64) (int64, error) {
		cardDebited = amount
		return 1, nil
	}

	_, err := f.service.Collect(context.Background(), f.request(money.Naira(200)))
	require.NoError(t, err)
	assert.Equal(t, money.Naira(200), cardDebited)
	assert.Zero(t, f.debitedAmount)
	assert.Empty(t, f.stations.incremented)
	require.Len(t, f.ledger.entries, 2)
	assert.Equal(t, "card-1", *f.ledger.entries[0].CardID)

	assert.Equal(t, []events.Type{events.WalletCredited, events.CardDebited}, f.emitter.types())
	debited := f.emitter.events[1]
	assert.Empty(t, debited.WalletID, "the linked wallet balance did not change")
	assert.Equal(t, money.Naira(100), debited.Balance)
	assert.Equal(t, "card-1", debited.Data["card_id"])
}

func TestCollectCardScopedInsufficient(t *testing.T) {
	f := newCollectionFixture(t, nil)
	f.card.Balance = int64Ptr(money.Naira(100))

	_, err := f.service.Collect(context.Background(), f.request(money.Naira(200)))
	assert.True(t, errors.Is(err, apperr.ErrInsufficientFunds))
}

func TestCollectFixedStationAmount(t *testing.T) {
	f := newCollectionFixture(t, nil)
	f.stations.station.AmountIsFixed = true
	f.stations.station.Amount = money.Naira(250)

	trx, err := f.service.Collect(context.Background(), f.request(money.Naira(9_000)))
	require.NoError(t, err)
	assert.Equal(t, money.Naira(250), trx.Amount)
}

func TestCollectPasswordCheckUsesEffectiveAmount(t *testing.T) {
	f := newCollectionFixture(t, nil)
	f.stations.station.AmountIsFixed = true
	f.stations.station.Amount = money.Naira(300)
	req := f.request(money.Naira(9_000))
	req.Password = "wrong"

	_, err := f.service.Collect(context.Background(), req)
	require.NoError(t, err, "fixed amount below the threshold needs no password")

	f.stations.station.Amount = money.Naira(600)
	_, err = f.service.Collect(context.Background(), req)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Incorrect password", apperr.MessageOf(err, ""))
}

func TestCollectCardChecks(t *testing.T) {
	f := newCollectionFixture(t, nil)

	req := f.request(money.Naira(100))
	req.CardSecret = "not-the-secret"
	_, err := f.service.Collect(context.Background(), req)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	f.card.Active = false
	_, err = f.service.Collect(context.Background(), f.request(money.Naira(100)))
	assert.Equal(t, apperr.KindInactive, apperr.KindOf(err))

	f.card.Active = true
	f.card.UserID = nil
	_, err = f.service.Collect(context.Background(), f.request(money.Naira(100)))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCollectInsufficientWalletBalance(t *testing.T) {
	f := newCollectionFixture(t, nil)
	f.payer.Balance = money.Naira(50)

	_, err := f.service.Collect(context.Background(), f.request(money.Naira(100)))
	assert.Equal(t, apperr.KindInsufficientFunds, apperr.KindOf(err))
	assert.Zero(t, f.debitedAmount)
}

func TestCollectMerchant(t *testing.T) {
	f := newCollectionFixture(t, nil)
	req := f.request(money.Naira(100))
	req.Collector = MerchantCollector{UserID: "merchant-1"}

	trx, err := f.service.Collect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "merchant-1", *trx.RecipientID)
	assert.Nil(t, trx.StationID)
	assert.Empty(t, f.stations.incremented)
}

func TestCollectStoreFailureIsServiceUnavailable(t *testing.T) {
	f := newCollectionFixture(t, errors.New("connection reset"))

	_, err := f.service.Collect(context.Background(), f.request(money.Naira(100)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
	assert.Equal(t, "Payment failed", apperr.MessageOf(err, ""))
	assert.False(t, strings.Contains(apperr.MessageOf(err, ""), "connection"))
	assert.Empty(t, f.emitter.types())
}
