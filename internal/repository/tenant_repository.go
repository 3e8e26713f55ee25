package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TenantRepository reads the control-plane tenant registry and the
// persisted per-tenant worker settings.
type TenantRepository interface {
	ListActive(ctx context.Context) ([]domain.Tenant, error)
	GetByCode(ctx context.Context, code string) (*domain.Tenant, error)
	GetSettings(ctx context.Context, code string) (domain.TenantSettings, error)
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository instantiates repository.
func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	const query = `
        SELECT id, code, name, dsn, is_active, created_at
        FROM tenants WHERE is_active ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		if err := rows.Scan(
			&tenant.ID,
			&tenant.Code,
			&tenant.Name,
			&tenant.DSN,
			&tenant.IsActive,
			&tenant.CreatedAt,
		); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (r *tenantRepository) GetByCode(ctx context.Context, code string) (*domain.Tenant, error) {
	const query = `
        SELECT id, code, name, dsn, is_active, created_at
        FROM tenants WHERE code=$1`
	var tenant domain.Tenant
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&tenant.ID,
		&tenant.Code,
		&tenant.Name,
		&tenant.DSN,
		&tenant.IsActive,
		&tenant.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetSettings(ctx context.Context, code string) (domain.TenantSettings, error) {
	const query = `
        SELECT tenant_code, sla_check_interval_seconds, updated_at
        FROM tenant_settings WHERE tenant_code=$1`
	var settings domain.TenantSettings
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&settings.TenantCode,
		&settings.SLACheckIntervalSeconds,
		&settings.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TenantSettings{TenantCode: code}, nil
		}
		return domain.TenantSettings{}, err
	}
	return settings, nil
}
