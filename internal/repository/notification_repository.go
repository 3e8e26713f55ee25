package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// NotificationRepository persists breach notifications. Tenant-scoped.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.Notification, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO notifications (id, ticket_id, type, phase, severity, message, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		notification.ID,
		notification.TicketID,
		notification.Type,
		notification.Phase,
		notification.Severity,
		notification.Message,
		payload,
	).Scan(&notification.CreatedAt)
}

func (r *notificationRepository) ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, ticket_id, type, phase, severity, message, payload, created_at
        FROM notifications WHERE ticket_id=$1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		var payload []byte
		if err := rows.Scan(
			&notification.ID,
			&notification.TicketID,
			&notification.Type,
			&notification.Phase,
			&notification.Severity,
			&notification.Message,
			&payload,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &notification.Payload)
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}
