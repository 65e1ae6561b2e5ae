package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryRepository is an in-process Repository used by tests and local runs.
// Product numbers are unique; a later Put takes the number over.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]Record
	byNumber map[string]string
}

// NewMemoryRepository returns a repository seeded with records.
func NewMemoryRepository(records ...Record) *MemoryRepository {
	repo := &MemoryRepository{
		products: make(map[string]Record, len(records)),
		byNumber: make(map[string]string, len(records)),
	}
	for _, rec := range records {
		repo.Put(rec)
	}
	return repo
}

// Put stores or replaces a record.
func (m *MemoryRepository) Put(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.products[rec.ID]; ok && m.byNumber[prev.ProductNumber] == rec.ID {
		delete(m.byNumber, prev.ProductNumber)
	}
	m.products[rec.ID] = rec
	m.byNumber[rec.ProductNumber] = rec.ID
}

// FindByID implements Repository.
func (m *MemoryRepository) FindByID(_ context.Context, id string, ruleIDs []string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.resolve(rec, ruleIDs), nil
}

// FindByNumber implements Repository.
func (m *MemoryRepository) FindByNumber(_ context.Context, number string, ruleIDs []string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byNumber[number]
	if !ok {
		return nil, ErrNotFound
	}
	return m.resolve(m.products[id], ruleIDs), nil
}

// resolve applies parent inheritance and rule selection the way the SQL
// repository does, returning rows ordered by QuantityEnd with the open row last.
func (m *MemoryRepository) resolve(rec Record, ruleIDs []string) *Record {
	parent, hasParent := m.products[rec.ParentID]
	rows := rec.Prices
	if len(rows) == 0 && hasParent {
		rows = parent.Prices
	}
	if rec.GroupMinimum == 0 && hasParent {
		rec.GroupMinimum = parent.GroupMinimum
	}
	rec.Prices = slices.Clone(selectRulePrices(rows, ruleIDs))
	slices.SortStableFunc(rec.Prices, compareQuantityEnd)
	return &rec
}

func compareQuantityEnd(a, b PriceRow) int {
	switch {
	case a.QuantityEnd == nil && b.QuantityEnd == nil:
		return 0
	case a.QuantityEnd == nil:
		return 1
	case b.QuantityEnd == nil:
		return -1
	}
	return cmp.Compare(*a.QuantityEnd, *b.QuantityEnd)
}
