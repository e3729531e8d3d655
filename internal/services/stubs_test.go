package services

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"starkpay/internal/events"
	"starkpay/internal/models"
	"starkpay/internal/rail"
	"starkpay/internal/store"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubWalletStore struct {
	getByIDFn       func(ctx context.Context, id string) (models.Wallet, error)
	getByUserFn     func(ctx context.Context, userID string) (models.Wallet, error)
	getByBusinessFn func(ctx context.Context, businessID string) (models.Wallet, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, id string) (models.Wallet, error)
	creditFn        func(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error)
	debitFn         func(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error)
	debitCounterFn  func(ctx context.Context, tx store.Execer, id string, amount, counter int64, at time.Time) (int64, error)
}

func (s *stubWalletStore) GetByID(ctx context.Context, id string) (models.Wallet, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubWalletStore) GetByUser(ctx context.Context, userID string) (models.Wallet, error) {
	return s.getByUserFn(ctx, userID)
}

func (s *stubWalletStore) GetByBusiness(ctx context.Context, businessID string) (models.Wallet, error) {
	return s.getByBusinessFn(ctx, businessID)
}

func (s *stubWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Wallet, error) {
	return s.getForUpdateFn(ctx, tx, id)
}

func (s *stubWalletStore) Credit(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error) {
	if s.creditFn == nil {
		return 1, nil
	}
	return s.creditFn(ctx, tx, id, amount)
}

func (s *stubWalletStore) Debit(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error) {
	if s.debitFn == nil {
		return 1, nil
	}
	return s.debitFn(ctx, tx, id, amount)
}

func (s *stubWalletStore) DebitWithDailyCounter(ctx context.Context, tx store.Execer, id string, amount, counter int64, at time.Time) (int64, error) {
	if s.debitCounterFn == nil {
		return 1, nil
	}
	return s.debitCounterFn(ctx, tx, id, amount, counter, at)
}

type stubCardStore struct {
	createFn       func(ctx context.Context, tx store.Getter, id, hash, createdByID string) (models.Card, error)
	getByIDFn      func(ctx context.Context, id string) (models.Card, error)
	getByNumberFn  func(ctx context.Context, number string) (models.Card, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, id string) (models.Card, error)
	listByUserFn   func(ctx context.Context, userID string) ([]models.Card, error)
	debitFn        func(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error)
	attachFn       func(ctx context.Context, tx store.Execer, id, userID, walletID string, name *string) (int64, error)
	detachFn       func(ctx context.Context, tx store.Execer, id string) (int64, error)
	updateFn       func(ctx context.Context, tx store.Execer, id string, name *string, active *bool) (int64, error)
	deleteFn       func(ctx context.Context, tx store.Execer, id string) (int64, error)
}

func (s *stubCardStore) Create(ctx context.Context, tx store.Getter, id, hash, createdByID string) (models.Card, error) {
	return s.createFn(ctx, tx, id, hash, createdByID)
}

func (s *stubCardStore) GetByID(ctx context.Context, id string) (models.Card, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubCardStore) GetByNumber(ctx context.Context, number string) (models.Card, error) {
	return s.getByNumberFn(ctx, number)
}

// GetForUpdate falls back to GetByID so tests only describe the card once.
func (s *stubCardStore) GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Card, error) {
	if s.getForUpdateFn == nil {
		return s.getByIDFn(ctx, id)
	}
	return s.getForUpdateFn(ctx, tx, id)
}

func (s *stubCardStore) ListByUser(ctx context.Context, userID string) ([]models.Card, error) {
	return s.listByUserFn(ctx, userID)
}

func (s *stubCardStore) DebitBalance(ctx context.Context, tx store.Execer, id string, amount int64) (int64, error) {
	if s.debitFn == nil {
		return 1, nil
	}
	return s.debitFn(ctx, tx, id, amount)
}

func (s *stubCardStore) Attach(ctx context.Context, tx store.Execer, id, userID, walletID string, name *string) (int64, error) {
	if s.attachFn == nil {
		return 1, nil
	}
	return s.attachFn(ctx, tx, id, userID, walletID, name)
}

func (s *stubCardStore) Detach(ctx context.Context, tx store.Execer, id string) (int64, error) {
	if s.detachFn == nil {
		return 1, nil
	}
	return s.detachFn(ctx, tx, id)
}

func (s *stubCardStore) Update(ctx context.Context, tx store.Execer, id string, name *string, active *bool) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, id, name, active)
}

func (s *stubCardStore) Delete(ctx context.Context, tx store.Execer, id string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, tx, id)
}

type stubCardHistoryStore struct {
	actions []models.CardAction
	actors  []string
}

func (s *stubCardHistoryStore) Append(_ context.Context, _ store.Execer, _, _, actorID string, action models.CardAction) error {
	s.actions = append(s.actions, action)
	s.actors = append(s.actors, actorID)
	return nil
}

func (s *stubCardHistoryStore) ListByCard(context.Context, string) ([]store.CardHistoryEntry, error) {
	entries := make([]store.CardHistoryEntry, 0, len(s.actions))
	for i, action := range s.actions {
		entries = append(entries, store.CardHistoryEntry{Action: action, CreatedByID: s.actors[i]})
	}
	return entries, nil
}

type stubTransactionStore struct {
	created  []models.Transaction
	settled  []store.SettleInput
	createFn func(ctx context.Context, tx store.Execer, trx models.Transaction) error
	settleFn func(ctx context.Context, tx store.Execer, input store.SettleInput) (int64, error)
	sumFn    func(ctx context.Context, businessID string, since time.Time) (int64, error)
}

func (s *stubTransactionStore) Create(ctx context.Context, tx store.Execer, trx models.Transaction) error {
	if s.createFn != nil {
		if err := s.createFn(ctx, tx, trx); err != nil {
			return err
		}
	}
	s.created = append(s.created, trx)
	return nil
}

func (s *stubTransactionStore) Settle(ctx context.Context, tx store.Execer, input store.SettleInput) (int64, error) {
	s.settled = append(s.settled, input)
	if s.settleFn == nil {
		return 1, nil
	}
	return s.settleFn(ctx, tx, input)
}

func (s *stubTransactionStore) SumBusinessSince(ctx context.Context, businessID string, since time.Time) (int64, error) {
	if s.sumFn == nil {
		return 0, nil
	}
	return s.sumFn(ctx, businessID, since)
}

type stubLedgerStore struct {
	entries []store.LedgerEntryInput
}

func (s *stubLedgerStore) InsertEntries(_ context.Context, _ store.Execer, entries []store.LedgerEntryInput) error {
	s.entries = append(s.entries, entries...)
	return nil
}

type stubUserStore struct {
	getByIDFn       func(ctx context.Context, id string) (models.User, error)
	getByEmailFn    func(ctx context.Context, email string) (models.User, error)
	getByPhoneFn    func(ctx context.Context, phone string) (models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (models.User, error)
}

func (s *stubUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *stubUserStore) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	return s.getByPhoneFn(ctx, phone)
}

func (s *stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

type stubStationStore struct {
	station     models.Station
	getErr      error
	incremented []int64
}

func (s *stubStationStore) GetByID(context.Context, string) (models.Station, error) {
	return s.station, s.getErr
}

func (s *stubStationStore) IncrementDailyBalance(_ context.Context, _ store.Execer, _ string, amount int64) error {
	s.incremented = append(s.incremented, amount)
	return nil
}

type stubBusinessStore struct {
	business     models.Business
	getErr       error
	processor    models.Processor
	processorErr error
}

func (s *stubBusinessStore) GetByID(context.Context, string) (models.Business, error) {
	return s.business, s.getErr
}

func (s *stubBusinessStore) ActiveProcessor(context.Context) (models.Processor, error) {
	return s.processor, s.processorErr
}

type stubBankAccountStore struct {
	account models.BankAccount
	err     error
}

func (s stubBankAccountStore) GetAccount(context.Context, string) (models.BankAccount, error) {
	return s.account, s.err
}

type stubAuditStore struct {
	actions []string
}

func (s *stubAuditStore) Log(_ context.Context, _ store.Execer, _, action, _, _ string, _ any) error {
	s.actions = append(s.actions, action)
	return nil
}

type stubRefs struct{}

func (stubRefs) Generate(txType models.TransactionType) string {
	return "stark-pay-test-" + string(txType)
}

type stubTransferRail struct {
	inputs []rail.TransferInput
	result rail.TransferResult
	err    error
}

func (s *stubTransferRail) Initiate(_ context.Context, input rail.TransferInput) (rail.TransferResult, error) {
	s.inputs = append(s.inputs, input)
	return s.result, s.err
}

type stubFundingRail struct {
	inputs  []rail.VirtualAccountInput
	account rail.VirtualAccount
	err     error
}

func (s *stubFundingRail) CreateVirtualAccount(_ context.Context, input rail.VirtualAccountInput) (rail.VirtualAccount, error) {
	s.inputs = append(s.inputs, input)
	return s.account, s.err
}

type stubOTPVerifier struct {
	identity string
	err      error
	purposes []models.OTPPurpose
	bounds   []string
}

func (s *stubOTPVerifier) Verify(_ context.Context, _ string, purpose models.OTPPurpose, bound string) (string, error) {
	s.purposes = append(s.purposes, purpose)
	s.bounds = append(s.bounds, bound)
	return s.identity, s.err
}

type stubEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *stubEmitter) Emit(event events.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return true
}

func (s *stubEmitter) types() []events.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Type, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Type)
	}
	return out
}

func stringPtr(value string) *string {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}
