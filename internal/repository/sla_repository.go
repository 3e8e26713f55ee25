package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	slapkg "github.com/spec-kit/sla-engine/internal/sla"
)

// SLARepository reads SLA definitions, business hours profiles and the
// per-source lookups behind the resolution cascade. Tenant-scoped.
type SLARepository interface {
	slapkg.CatalogStore
	GetProfile(ctx context.Context, id int64) (*domain.BusinessHoursProfile, error)
	// ProfileForDefinition loads the definition's bound profile, nil
	// when the definition has none (calendar-time semantics).
	ProfileForDefinition(ctx context.Context, def *domain.SLADefinition) (*domain.BusinessHoursProfile, error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository instantiates repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

const slaDefinitionColumns = `id, name, response_target_minutes, resolve_target_minutes,
       resolve_after_response_minutes, near_breach_percent, past_breach_percent,
       business_hours_profile_id, is_active, created_at, updated_at`

func (r *slaRepository) GetDefinition(ctx context.Context, id int64) (*domain.SLADefinition, error) {
	query := `SELECT ` + slaDefinitionColumns + ` FROM sla_definitions WHERE id=$1`
	var def domain.SLADefinition
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&def.ID,
		&def.Name,
		&def.ResponseTargetMinutes,
		&def.ResolveTargetMinutes,
		&def.ResolveAfterResponseMinutes,
		&def.NearBreachPercent,
		&def.PastBreachPercent,
		&def.BusinessHoursProfileID,
		&def.IsActive,
		&def.CreatedAt,
		&def.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *slaRepository) ListActiveDefinitions(ctx context.Context) ([]domain.SLADefinition, error) {
	query := `SELECT ` + slaDefinitionColumns + ` FROM sla_definitions WHERE is_active ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []domain.SLADefinition
	for rows.Next() {
		var def domain.SLADefinition
		if err := rows.Scan(
			&def.ID,
			&def.Name,
			&def.ResponseTargetMinutes,
			&def.ResolveTargetMinutes,
			&def.ResolveAfterResponseMinutes,
			&def.NearBreachPercent,
			&def.PastBreachPercent,
			&def.BusinessHoursProfileID,
			&def.IsActive,
			&def.CreatedAt,
			&def.UpdatedAt,
		); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (r *slaRepository) UserOverrideSLA(ctx context.Context, userID int64) (*int64, error) {
	const query = `SELECT sla_definition_id FROM users WHERE id=$1`
	var slaID *int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&slaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slaID, nil
}

func (r *slaRepository) GetCompanyRef(ctx context.Context, companyID int64) (*slapkg.CompanyRef, error) {
	const query = `SELECT sla_definition_id, COALESCE(service_level, '') FROM companies WHERE id=$1`
	var ref slapkg.CompanyRef
	if err := r.pool.QueryRow(ctx, query, companyID).Scan(&ref.SLAID, &ref.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

func (r *slaRepository) CategorySLA(ctx context.Context, category string) (*int64, error) {
	const query = `SELECT sla_definition_id FROM category_sla_mappings WHERE LOWER(category)=$1`
	var slaID *int64
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(category)).Scan(&slaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slaID, nil
}

func (r *slaRepository) CMDBItemSLA(ctx context.Context, itemID int64) (*int64, error) {
	const query = `SELECT sla_definition_id FROM cmdb_items WHERE id=$1`
	var slaID *int64
	if err := r.pool.QueryRow(ctx, query, itemID).Scan(&slaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slaID, nil
}

func (r *slaRepository) DefaultSLA(ctx context.Context) (*int64, error) {
	const query = `SELECT id FROM sla_definitions WHERE is_active ORDER BY id ASC LIMIT 1`
	var slaID int64
	if err := r.pool.QueryRow(ctx, query).Scan(&slaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &slaID, nil
}

func (r *slaRepository) GetProfile(ctx context.Context, id int64) (*domain.BusinessHoursProfile, error) {
	const query = `
        SELECT id, name, timezone, COALESCE(weekdays, ''), start_time, end_time, is_24x7
        FROM business_hours_profiles WHERE id=$1`
	var profile domain.BusinessHoursProfile
	var weekdays string
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Timezone,
		&weekdays,
		&profile.StartTime,
		&profile.EndTime,
		&profile.Is24x7,
	); err != nil {
		return nil, err
	}
	profile.Weekdays = domain.ParseWeekdays(weekdays)
	return &profile, nil
}

func (r *slaRepository) ProfileForDefinition(ctx context.Context, def *domain.SLADefinition) (*domain.BusinessHoursProfile, error) {
	if def == nil || def.BusinessHoursProfileID == nil {
		return nil, nil
	}
	profile, err := r.GetProfile(ctx, *def.BusinessHoursProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}
