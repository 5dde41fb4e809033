package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warely/stockledger/internal/domain"
	"github.com/warely/stockledger/internal/usecase"
)

// MockMovementRepository is a mock implementation of MovementRepository.
type MockMovementRepository struct {
	mu        sync.RWMutex
	movements map[string]*domain.Movement

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, movement *domain.Movement) error
	GetByIDFunc      func(ctx context.Context, id string) (*domain.MovementDetail, error)
	ListFunc         func(ctx context.Context, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementSummary, int, error)
	KardexFunc       func(ctx context.Context, query domain.KardexQuery) ([]*domain.KardexEntry, error)
	SummarizeFunc    func(ctx context.Context, from, to time.Time, kind domain.MovementKind) ([]*domain.KindSummary, error)
	EffectTotalsFunc func(ctx context.Context) (map[domain.BalanceKey]decimal.Decimal, error)
}

func NewMockMovementRepository() *MockMovementRepository {
	return &MockMovementRepository{
		movements: make(map[string]*domain.Movement),
	}
}

func (m *MockMovementRepository) Create(ctx context.Context, tx usecase.Transaction, movement *domain.Movement) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, movement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements[movement.ID] = movement
	return nil
}

// Recorded returns the committed movements by id (default Create only).
func (m *MockMovementRepository) Recorded() map[string]*domain.Movement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*domain.Movement, len(m.movements))
	for id, movement := range m.movements {
		out[id] = movement
	}
	return out
}

func (m *MockMovementRepository) GetByID(ctx context.Context, id string) (*domain.MovementDetail, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if movement, ok := m.movements[id]; ok {
		detail := &domain.MovementDetail{Movement: *movement}
		for _, line := range movement.Lines {
			detail.Lines = append(detail.Lines, domain.LineDetail{MovementLine: line})
		}
		return detail, nil
	}
	return nil, domain.ErrMovementNotFound
}

func (m *MockMovementRepository) List(ctx context.Context, filter domain.MovementFilter, limit, offset int) ([]*domain.MovementSummary, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, limit, offset)
	}
	return nil, 0, nil
}

func (m *MockMovementRepository) Kardex(ctx context.Context, query domain.KardexQuery) ([]*domain.KardexEntry, error) {
	if m.KardexFunc != nil {
		return m.KardexFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockMovementRepository) Summarize(ctx context.Context, from, to time.Time, kind domain.MovementKind) ([]*domain.KindSummary, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, from, to, kind)
	}
	return nil, nil
}

func (m *MockMovementRepository) EffectTotals(ctx context.Context) (map[domain.BalanceKey]decimal.Decimal, error) {
	if m.EffectTotalsFunc != nil {
		return m.EffectTotalsFunc(ctx)
	}
	return map[domain.BalanceKey]decimal.Decimal{}, nil
}

// MockBalanceRepository is a mock implementation of BalanceRepository
// backed by an in-memory map.
type MockBalanceRepository struct {
	mu       sync.RWMutex
	balances map[domain.BalanceKey]*domain.StockBalance

	LockPairsFunc func(ctx context.Context, tx usecase.Transaction, keys []domain.BalanceKey) (map[domain.BalanceKey]*domain.StockBalance, error)
	UpdateFunc    func(ctx context.Context, tx usecase.Transaction, balance *domain.StockBalance) error
	GetFunc       func(ctx context.Context, itemID, warehouseID string) (*domain.StockBalance, error)
	SnapshotFunc  func(ctx context.Context, warehouseID string) ([]*domain.StockLevel, error)
	AllFunc       func(ctx context.Context) ([]*domain.StockBalance, error)
}

func NewMockBalanceRepository() *MockBalanceRepository {
	return &MockBalanceRepository{
		balances: make(map[domain.BalanceKey]*domain.StockBalance),
	}
}

// Seed sets an initial balance.
func (m *MockBalanceRepository) Seed(itemID, warehouseID string, quantity decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}
	m.balances[key] = &domain.StockBalance{ItemID: itemID, WarehouseID: warehouseID, Quantity: quantity}
}

// Quantity reads a seeded or updated balance, zero when absent.
func (m *MockBalanceRepository) Quantity(itemID, warehouseID string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.balances[domain.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}]; ok {
		return b.Quantity
	}
	return decimal.Zero
}

func (m *MockBalanceRepository) LockPairs(ctx context.Context, tx usecase.Transaction, keys []domain.BalanceKey) (map[domain.BalanceKey]*domain.StockBalance, error) {
	if m.LockPairsFunc != nil {
		return m.LockPairsFunc(ctx, tx, keys)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.BalanceKey]*domain.StockBalance, len(keys))
	for _, key := range keys {
		if _, ok := m.balances[key]; !ok {
			m.balances[key] = &domain.StockBalance{ItemID: key.ItemID, WarehouseID: key.WarehouseID}
		}
		copied := *m.balances[key]
		out[key] = &copied
	}
	return out, nil
}

func (m *MockBalanceRepository) Update(ctx context.Context, tx usecase.Transaction, balance *domain.StockBalance) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, balance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *balance
	m.balances[balance.Key()] = &copied
	return nil
}

func (m *MockBalanceRepository) Get(ctx context.Context, itemID, warehouseID string) (*domain.StockBalance, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, itemID, warehouseID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.balances[domain.BalanceKey{ItemID: itemID, WarehouseID: warehouseID}]; ok {
		copied := *b
		return &copied, nil
	}
	return &domain.StockBalance{ItemID: itemID, WarehouseID: warehouseID}, nil
}

func (m *MockBalanceRepository) Snapshot(ctx context.Context, warehouseID string) ([]*domain.StockLevel, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, warehouseID)
	}
	return nil, nil
}

func (m *MockBalanceRepository) All(ctx context.Context) ([]*domain.StockBalance, error) {
	if m.AllFunc != nil {
		return m.AllFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.StockBalance
	for _, b := range m.balances {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

// MockCatalogRepository is a mock implementation of CatalogRepository.
type MockCatalogRepository struct {
	mu         sync.RWMutex
	items      map[string]*domain.Item
	warehouses map[string]*domain.Warehouse

	GetItemFunc      func(ctx context.Context, id string) (*domain.Item, error)
	GetWarehouseFunc func(ctx context.Context, id string) (*domain.Warehouse, error)
}

func NewMockCatalogRepository() *MockCatalogRepository {
	return &MockCatalogRepository{
		items:      make(map[string]*domain.Item),
		warehouses: make(map[string]*domain.Warehouse),
	}
}

func (m *MockCatalogRepository) AddItem(item *domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *MockCatalogRepository) AddWarehouse(warehouse *domain.Warehouse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warehouses[warehouse.ID] = warehouse
}

func (m *MockCatalogRepository) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, domain.ErrItemNotFound
}

func (m *MockCatalogRepository) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	if m.GetWarehouseFunc != nil {
		return m.GetWarehouseFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if warehouse, ok := m.warehouses[id]; ok {
		return warehouse, nil
	}
	return nil, domain.ErrWarehouseNotFound
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%03d", m.counter)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

// ErrCacheMiss mirrors the adapter's miss signal for mock use.
var ErrCacheMiss = errors.New("cache miss")

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
