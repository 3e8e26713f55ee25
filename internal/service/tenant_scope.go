package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// Stores bundles the tenant-scoped repositories a single operation
// works with.
type Stores struct {
	Tickets       repository.TicketRepository
	SLAs          repository.SLARepository
	Notifications repository.NotificationRepository
}

// Scope is a leased tenant context. Close must run on every exit path.
type Scope struct {
	Tenant  domain.Tenant
	Stores  Stores
	release func()
}

// Close returns the underlying tenant handle. Safe to call repeatedly.
func (s *Scope) Close() {
	if s == nil || s.release == nil {
		return
	}
	s.release()
	s.release = nil
}

// ScopeProvider leases tenant-scoped stores by tenant code.
type ScopeProvider interface {
	Scope(ctx context.Context, tenantCode string) (*Scope, error)
	ScopeFor(ctx context.Context, tenant domain.Tenant) (*Scope, error)
}

type tenantScopeProvider struct {
	tenants repository.TenantRepository
	pools   *persistence.TenantPools
}

// NewScopeProvider wires the tenant registry to the pool cache.
func NewScopeProvider(tenants repository.TenantRepository, pools *persistence.TenantPools) ScopeProvider {
	return &tenantScopeProvider{tenants: tenants, pools: pools}
}

func (p *tenantScopeProvider) Scope(ctx context.Context, tenantCode string) (*Scope, error) {
	tenant, err := p.tenants.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("lookup tenant %s: %w", tenantCode, err)
	}
	if !tenant.IsActive {
		return nil, fmt.Errorf("tenant %s is inactive", tenantCode)
	}
	return p.ScopeFor(ctx, *tenant)
}

func (p *tenantScopeProvider) ScopeFor(ctx context.Context, tenant domain.Tenant) (*Scope, error) {
	handle, err := p.pools.Acquire(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return &Scope{
		Tenant:  tenant,
		Stores:  storesFor(handle.Pool()),
		release: handle.Release,
	}, nil
}

func storesFor(pool *pgxpool.Pool) Stores {
	return Stores{
		Tickets:       repository.NewTicketRepository(pool),
		SLAs:          repository.NewSLARepository(pool),
		Notifications: repository.NewNotificationRepository(pool),
	}
}
