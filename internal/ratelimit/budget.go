package ratelimit

import (
	"context"
	"sync"

	"github.com/nzila/unionkb/internal/models"
)

// BudgetStore is the external system of record for tenant budgets. The
// limiter reads budgets during checks; the cost meter is the sole writer of
// current spend.
type BudgetStore interface {
	// Get returns the tenant's budget, or nil when the tenant has none
	// configured (no budget means no budget enforcement).
	Get(ctx context.Context, tenant string) (*models.Budget, error)
	// AddSpend adds usd to the tenant's current spend.
	AddSpend(ctx context.Context, tenant string, usd float64) error
}

// MemoryBudgetStore is an in-process BudgetStore for tests and single-node
// deployments.
type MemoryBudgetStore struct {
	mu      sync.RWMutex
	budgets map[string]*models.Budget
}

// NewMemoryBudgetStore creates an empty budget store.
func NewMemoryBudgetStore() *MemoryBudgetStore {
	return &MemoryBudgetStore{budgets: make(map[string]*models.Budget)}
}

// Set stores or replaces a tenant's budget.
func (m *MemoryBudgetStore) Set(budget *models.Budget) {
	m.mu.Lock()
	m.budgets[budget.OrganizationID] = budget
	m.mu.Unlock()
}

// Get returns a copy of the tenant's budget, or nil when none is configured.
func (m *MemoryBudgetStore) Get(ctx context.Context, tenant string) (*models.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.budgets[tenant]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

// AddSpend adds usd to the tenant's current spend. Unknown tenants are a
// no-op: spend without a budget is unmetered by definition.
func (m *MemoryBudgetStore) AddSpend(ctx context.Context, tenant string, usd float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.budgets[tenant]; ok {
		b.CurrentSpendUSD += usd
	}
	return nil
}
