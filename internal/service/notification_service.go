package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/events"
)

// NotificationService fans domain events out to delivery channels.
// Email and webhook delivery are stubbed pending channel integration.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLAApplied, n.handleSLAApplied)
	n.dispatcher.Subscribe(events.EventSLANotificationFired, n.handleNotificationFired)
	n.dispatcher.Subscribe(events.EventFirstResponseRecorded, n.handleFirstResponse)
	n.dispatcher.Subscribe(events.EventPoolScored, n.handlePoolScored)
}

func (n *NotificationService) handleSLAApplied(ctx context.Context, event events.Event) error {
	n.logger.Info("SLAApplied",
		zap.String("tenant", event.Tenant),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleNotificationFired(ctx context.Context, event events.Event) error {
	n.logger.Info("SLANotificationFired",
		zap.String("tenant", event.Tenant),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleFirstResponse(ctx context.Context, event events.Event) error {
	n.logger.Info("FirstResponseRecorded",
		zap.String("tenant", event.Tenant),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePoolScored(_ context.Context, event events.Event) error {
	n.logger.Debug("PoolScored",
		zap.String("tenant", event.Tenant),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
