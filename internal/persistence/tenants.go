package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TenantPools hands out tenant-scoped database handles. Pools are
// opened lazily from the DSN in the tenant registry and cached per
// tenant code. Callers must release the handle on every exit path.
type TenantPools struct {
	logger *zap.Logger

	mu    sync.Mutex
	pools map[string]*tenantPool
}

type tenantPool struct {
	pool *pgxpool.Pool
	refs int
}

// TenantHandle is a leased connection pool for one tenant.
type TenantHandle struct {
	code     string
	pool     *pgxpool.Pool
	owner    *TenantPools
	released bool
}

// Pool exposes the underlying pgx pool.
func (h *TenantHandle) Pool() *pgxpool.Pool {
	return h.pool
}

// Release returns the handle. Safe to call more than once.
func (h *TenantHandle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.owner.release(h.code)
}

// NewTenantPools creates the provider.
func NewTenantPools(logger *zap.Logger) *TenantPools {
	return &TenantPools{
		logger: logger,
		pools:  make(map[string]*tenantPool),
	}
}

// Acquire leases a handle for the tenant, connecting on first use.
func (t *TenantPools) Acquire(ctx context.Context, tenant domain.Tenant) (*TenantHandle, error) {
	t.mu.Lock()
	entry, ok := t.pools[tenant.Code]
	if ok {
		entry.refs++
		t.mu.Unlock()
		return &TenantHandle{code: tenant.Code, pool: entry.pool, owner: t}, nil
	}
	t.mu.Unlock()

	pool, err := pgxpool.New(ctx, tenant.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect tenant %s: %w", tenant.Code, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping tenant %s: %w", tenant.Code, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.pools[tenant.Code]; ok {
		// Another caller connected first.
		pool.Close()
		existing.refs++
		return &TenantHandle{code: tenant.Code, pool: existing.pool, owner: t}, nil
	}
	t.pools[tenant.Code] = &tenantPool{pool: pool, refs: 1}
	t.logger.Info("opened tenant database pool", zap.String("tenant", tenant.Code))
	return &TenantHandle{code: tenant.Code, pool: pool, owner: t}, nil
}

func (t *TenantPools) release(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.pools[code]
	if !ok {
		return
	}
	if entry.refs > 0 {
		entry.refs--
	}
}

// Close shuts every cached pool. Called once at process exit after
// in-flight work has drained.
func (t *TenantPools) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for code, entry := range t.pools {
		entry.pool.Close()
		delete(t.pools, code)
	}
}
