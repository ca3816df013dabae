package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"wallet/internal/models"
	"wallet/internal/store"
	"wallet/internal/websocket"
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
	createFn           func(ctx context.Context, tx store.Execer, w models.Wallet) error
	getByIDFn          func(ctx context.Context, walletID string) (models.Wallet, error)
	getForUpdateFn     func(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	updateBalanceFn    func(ctx context.Context, tx store.Execer, walletID string, balance decimal.Decimal) error
	getMembersFn       func(ctx context.Context, walletID string) ([]string, error)
	getUserWalletIDsFn func(ctx context.Context, userID string) ([]string, error)
}

func (s stubWalletStore) Create(ctx context.Context, tx store.Execer, w models.Wallet) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, w)
}

func (s stubWalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	if s.getByIDFn == nil {
		return models.Wallet{}, nil
	}
	return s.getByIDFn(ctx, walletID)
}

func (s stubWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error) {
	if s.getForUpdateFn == nil {
		return models.Wallet{}, nil
	}
	return s.getForUpdateFn(ctx, tx, walletID)
}

func (s stubWalletStore) UpdateBalance(ctx context.Context, tx store.Execer, walletID string, balance decimal.Decimal) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, walletID, balance)
}

func (s stubWalletStore) GetMembers(ctx context.Context, walletID string) ([]string, error) {
	if s.getMembersFn == nil {
		return nil, nil
	}
	return s.getMembersFn(ctx, walletID)
}

func (s stubWalletStore) GetUserWalletIDs(ctx context.Context, userID string) ([]string, error) {
	if s.getUserWalletIDsFn == nil {
		return nil, nil
	}
	return s.getUserWalletIDsFn(ctx, userID)
}

type stubTransactionStore struct {
	createFn               func(ctx context.Context, tx store.Execer, t models.Transaction) error
	getByIDFn              func(ctx context.Context, transactionID string) (models.Transaction, error)
	listByWalletsFn        func(ctx context.Context, walletIDs []string) ([]models.Transaction, error)
	listRecurringDueFn     func(ctx context.Context, now time.Time) ([]models.Transaction, error)
	advanceRecurrenceFn    func(ctx context.Context, tx store.Execer, transactionID string, lastExecuted, nextExecution time.Time) error
	deactivateRecurrenceFn func(ctx context.Context, tx store.Execer, transactionID string) error
	setCategoryFn          func(ctx context.Context, tx store.Execer, transactionID, categoryID string) error
}

func (s stubTransactionStore) Create(ctx context.Context, tx store.Execer, t models.Transaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, t)
}

func (s stubTransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	if s.getByIDFn == nil {
		return models.Transaction{}, nil
	}
	return s.getByIDFn(ctx, transactionID)
}

func (s stubTransactionStore) ListByWallets(ctx context.Context, walletIDs []string) ([]models.Transaction, error) {
	if s.listByWalletsFn == nil {
		return nil, nil
	}
	return s.listByWalletsFn(ctx, walletIDs)
}

func (s stubTransactionStore) ListRecurringDue(ctx context.Context, now time.Time) ([]models.Transaction, error) {
	if s.listRecurringDueFn == nil {
		return nil, nil
	}
	return s.listRecurringDueFn(ctx, now)
}

func (s stubTransactionStore) AdvanceRecurrence(ctx context.Context, tx store.Execer, transactionID string, lastExecuted, nextExecution time.Time) error {
	if s.advanceRecurrenceFn == nil {
		return nil
	}
	return s.advanceRecurrenceFn(ctx, tx, transactionID, lastExecuted, nextExecution)
}

func (s stubTransactionStore) DeactivateRecurrence(ctx context.Context, tx store.Execer, transactionID string) error {
	if s.deactivateRecurrenceFn == nil {
		return nil
	}
	return s.deactivateRecurrenceFn(ctx, tx, transactionID)
}

func (s stubTransactionStore) SetCategory(ctx context.Context, tx store.Execer, transactionID, categoryID string) error {
	if s.setCategoryFn == nil {
		return nil
	}
	return s.setCategoryFn(ctx, tx, transactionID, categoryID)
}

type stubCardStore struct {
	getByIDFn func(ctx context.Context, cardID string) (models.Card, error)
}

func (s stubCardStore) GetByID(ctx context.Context, cardID string) (models.Card, error) {
	if s.getByIDFn == nil {
		return models.Card{}, nil
	}
	return s.getByIDFn(ctx, cardID)
}

type stubCategoryStore struct {
	getByIDFn func(ctx context.Context, categoryID string) (models.Category, error)
}

func (s stubCategoryStore) GetByID(ctx context.Context, categoryID string) (models.Category, error) {
	if s.getByIDFn == nil {
		return models.Category{}, nil
	}
	return s.getByIDFn(ctx, categoryID)
}

type stubUserStore struct {
	getByIDFn func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubLedgerStore struct {
	insertFn       func(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	listByWalletFn func(ctx context.Context, walletID string, limit, offset int) ([]map[string]any, error)
}

func (s stubLedgerStore) InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entries)
}

func (s stubLedgerStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]map[string]any, error) {
	if s.listByWalletFn == nil {
		return nil, nil
	}
	return s.listByWalletFn(ctx, walletID, limit, offset)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubPolicyStore struct {
	isAdminFn   func(ctx context.Context, userID string) (bool, error)
	getPolicyFn func(ctx context.Context) (store.OverdraftPolicy, error)
	setPolicyFn func(ctx context.Context, tx store.Execer, enabled bool, limit decimal.Decimal, actorID string) error
}

func (s stubPolicyStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if s.isAdminFn == nil {
		return false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubPolicyStore) GetOverdraftPolicy(ctx context.Context) (store.OverdraftPolicy, error) {
	if s.getPolicyFn == nil {
		return store.OverdraftPolicy{}, nil
	}
	return s.getPolicyFn(ctx)
}

func (s stubPolicyStore) SetOverdraftPolicy(ctx context.Context, tx store.Execer, enabled bool, limit decimal.Decimal, actorID string) error {
	if s.setPolicyFn == nil {
		return nil
	}
	return s.setPolicyFn(ctx, tx, enabled, limit, actorID)
}

type stubRateStore struct {
	setRateFn func(ctx context.Context, tx store.Tx, baseCurrency, quoteCurrency, rate, actorID string) (string, error)
}

func (s stubRateStore) SetRate(ctx context.Context, tx store.Tx, baseCurrency, quoteCurrency, rate, actorID string) (string, error) {
	if s.setRateFn == nil {
		return "rate-1", nil
	}
	return s.setRateFn(ctx, tx, baseCurrency, quoteCurrency, rate, actorID)
}

type stubConverter struct {
	convertFn func(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

func (s stubConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if s.convertFn == nil {
		return amount, nil
	}
	return s.convertFn(ctx, amount, from, to)
}

type stubEscalator struct {
	stageFn       func(ctx context.Context, req CreateRequest, user models.User) (string, error)
	verifyCodeFn  func(ctx context.Context, userID, code string) error
	takePendingFn func(ctx context.Context, token string) (PendingTransaction, error)
}

func (s stubEscalator) Stage(ctx context.Context, req CreateRequest, user models.User) (string, error) {
	if s.stageFn == nil {
		return "token-1", nil
	}
	return s.stageFn(ctx, req, user)
}

func (s stubEscalator) VerifyCode(ctx context.Context, userID, code string) error {
	if s.verifyCodeFn == nil {
		return nil
	}
	return s.verifyCodeFn(ctx, userID, code)
}

func (s stubEscalator) TakePending(ctx context.Context, token string) (PendingTransaction, error) {
	if s.takePendingFn == nil {
		return PendingTransaction{}, nil
	}
	return s.takePendingFn(ctx, token)
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

type sentEmail struct {
	subject string
	to      string
	body    string
}

type stubEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *stubEmailSender) Send(subject, toAddress, toName, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{subject: subject, to: toAddress, body: body})
	return s.err
}

// memoryCache is an in-process TTLCache for exercising the escalation
// lifecycle without Redis. Expiry is checked lazily against clock.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func newMemoryCache(clock func() time.Time) *memoryCache {
	return &memoryCache{entries: make(map[string]memoryEntry), clock: clock}
}

func (c *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{payload: payload, expiresAt: c.clock().Add(ttl)}
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.clock().After(entry.expiresAt) {
		delete(c.entries, key)
		return false, nil
	}
	return true, json.Unmarshal(entry.payload, dest)
}

func (c *memoryCache) GetDel(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	delete(c.entries, key)
	if !ok || c.clock().After(entry.expiresAt) {
		return false, nil
	}
	return true, json.Unmarshal(entry.payload, dest)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type serviceOverrides struct {
	txRunner     fakeTxRunner
	wallets      stubWalletStore
	transactions stubTransactionStore
	cards        stubCardStore
	categories   stubCategoryStore
	users        stubUserStore
	ledger       stubLedgerStore
	audit        stubAuditStore
	policies     stubPolicyStore
	rates        stubRateStore
	converter    stubConverter
	escalator    stubEscalator
	hub          *stubHub
	threshold    decimal.Decimal
}

func newTestService(o serviceOverrides) (*TransactionService, *stubHub) {
	hub := o.hub
	if hub == nil {
		hub = &stubHub{}
	}
	threshold := o.threshold
	if threshold.IsZero() {
		threshold = decimal.RequireFromString("0.8")
	}
	service := NewTransactionService(o.txRunner, o.wallets, o.transactions, o.cards, o.categories, o.users, o.ledger, o.audit, o.policies, o.rates, o.converter, o.escalator, hub, threshold)
	return service, hub
}

func stringPtr(value string) *string {
	return &value
}
