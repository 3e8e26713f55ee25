package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const ticketColumns = `id, external_key, subject, description, requester_user_id, requester_name,
       company_id, company_name, category, cmdb_item_id, status, priority, created_at, updated_at,
       sla_definition_id, sla_applied_at, response_due_at, resolve_due_at, first_responded_at, resolved_at,
       notified_response_near_breach_at, notified_response_breached_at, notified_response_past_breach_at,
       notified_resolve_near_breach_at, notified_resolve_breached_at, notified_resolve_past_breach_at,
       pool_status, pool_score, pool_score_updated_at`

// TicketRepository encapsulates the ticket columns this subsystem owns.
// It is tenant-scoped: one instance per acquired tenant pool.
type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// ListActiveWithSLA returns non-terminal tickets carrying an SLA,
	// the breach notifier's sweep set.
	ListActiveWithSLA(ctx context.Context) ([]domain.Ticket, error)
	// ListMissingSLA returns non-terminal tickets still waiting for an
	// SLA, oldest first, for the backfill operation.
	ListMissingSLA(ctx context.Context, limit int) ([]domain.Ticket, error)
	// ApplySLA stamps the SLA columns once; a ticket that already has
	// a definition is left untouched.
	ApplySLA(ctx context.Context, ticketID, slaID int64, appliedAt, responseDue, resolveDue time.Time) (bool, error)
	// MarkFirstResponse records the first response and the recomputed
	// resolve deadline in one statement, guarded to run exactly once.
	MarkFirstResponse(ctx context.Context, ticketID int64, respondedAt, resolveDue time.Time) (bool, error)
	// StampNotification sets one notification sentinel if still null.
	// The false return means another sweep already fired it.
	StampNotification(ctx context.Context, ticketID int64, phase domain.SLAPhaseKind, severity domain.BreachSeverity, at time.Time) (bool, error)
	// SelectPoolBatch returns scorable pool tickets whose score is
	// missing or older than staleBefore, never-scored first then
	// oldest-created.
	SelectPoolBatch(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Ticket, error)
	UpdatePoolScore(ctx context.Context, ticketID int64, score int, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) ListActiveWithSLA(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE sla_definition_id IS NOT NULL
          AND status NOT IN ('RESOLVED','CLOSED','CANCELLED')
        ORDER BY created_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListMissingSLA(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE sla_definition_id IS NULL
          AND status NOT IN ('RESOLVED','CLOSED','CANCELLED')
        ORDER BY created_at ASC
        LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ApplySLA(ctx context.Context, ticketID, slaID int64, appliedAt, responseDue, resolveDue time.Time) (bool, error) {
	const query = `
        UPDATE tickets
        SET sla_definition_id=$1, sla_applied_at=$2, response_due_at=$3, resolve_due_at=$4, updated_at=NOW()
        WHERE id=$5 AND sla_definition_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, slaID, appliedAt, responseDue, resolveDue, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) MarkFirstResponse(ctx context.Context, ticketID int64, respondedAt, resolveDue time.Time) (bool, error) {
	const query = `
        UPDATE tickets
        SET first_responded_at=$1, resolve_due_at=$2, updated_at=NOW()
        WHERE id=$3 AND first_responded_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, respondedAt, resolveDue, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) StampNotification(ctx context.Context, ticketID int64, phase domain.SLAPhaseKind, severity domain.BreachSeverity, at time.Time) (bool, error) {
	column, err := sentinelColumn(phase, severity)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE tickets SET %s=$1, updated_at=NOW() WHERE id=$2 AND %s IS NULL`, column, column)
	cmd, err := r.pool.Exec(ctx, query, at, ticketID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) SelectPoolBatch(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE pool_status IN ('OPEN_POOL','CLAIMED_LOCKED','ESCALATED')
          AND status NOT IN ('RESOLVED','CLOSED','CANCELLED')
          AND (pool_score IS NULL OR pool_score_updated_at IS NULL OR pool_score_updated_at < $1)
        ORDER BY (pool_score IS NULL) DESC, created_at ASC
        LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query, staleBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdatePoolScore(ctx context.Context, ticketID int64, score int, at time.Time) error {
	const query = `UPDATE tickets SET pool_score=$1, pool_score_updated_at=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, score, at, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// sentinelColumn maps a phase/severity pair to its write-once column.
// The names are fixed here rather than interpolated from input.
func sentinelColumn(phase domain.SLAPhaseKind, severity domain.BreachSeverity) (string, error) {
	key := string(phase) + "/" + string(severity)
	columns := map[string]string{
		"response/near_breach": "notified_response_near_breach_at",
		"response/breached":    "notified_response_breached_at",
		"response/past_breach": "notified_response_past_breach_at",
		"resolve/near_breach":  "notified_resolve_near_breach_at",
		"resolve/breached":     "notified_resolve_breached_at",
		"resolve/past_breach":  "notified_resolve_past_breach_at",
	}
	column, ok := columns[key]
	if !ok {
		return "", fmt.Errorf("unknown notification sentinel %q", key)
	}
	return column, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var poolStatus *string
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Subject,
		&ticket.Description,
		&ticket.RequesterID,
		&ticket.RequesterName,
		&ticket.CompanyID,
		&ticket.CompanyName,
		&ticket.Category,
		&ticket.CMDBItemID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.SLADefinitionID,
		&ticket.SLAAppliedAt,
		&ticket.ResponseDueAt,
		&ticket.ResolveDueAt,
		&ticket.FirstRespondedAt,
		&ticket.ResolvedAt,
		&ticket.NotifiedResponseNearBreachAt,
		&ticket.NotifiedResponseBreachedAt,
		&ticket.NotifiedResponsePastBreachAt,
		&ticket.NotifiedResolveNearBreachAt,
		&ticket.NotifiedResolveBreachedAt,
		&ticket.NotifiedResolvePastBreachAt,
		&poolStatus,
		&ticket.PoolScore,
		&ticket.PoolScoreUpdatedAt,
	); err != nil {
		return nil, err
	}
	if poolStatus != nil {
		status := domain.PoolStatus(strings.ToUpper(*poolStatus))
		ticket.PoolStatus = &status
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
