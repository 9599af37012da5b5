package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/config"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/events"
)

// delivery selects the outbound channels for one event type.
type delivery struct {
	email   bool
	webhook bool
}

var deliveries = map[events.EventType]delivery{
	events.EventCallOpened:             {email: true, webhook: true},
	events.EventCallMessageAdded:       {email: true},
	events.EventCallStatusChanged:      {webhook: true},
	events.EventCallPriorityChanged:    {webhook: true},
	events.EventCallAssigned:           {webhook: true},
	events.EventChatRequested:          {webhook: true},
	events.EventChatAccepted:           {webhook: true},
	events.EventChatClosed:             {webhook: true},
	events.EventPasswordResetRequested: {email: true},
}

// NotificationService turns domain events into e-mail and webhook notifications.
// Delivery is stubbed: notifications are logged, not sent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every event type that has a delivery rule.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range deliveries {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	rule := deliveries[event.Type]
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("subject_id", event.SubjectID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Stringer("actor_role", event.Actor.Role))

	if rule.email {
		if to, ok := emailRecipient(event); ok {
			n.sendEmail(ctx, event, to)
		}
	}
	if rule.webhook {
		n.sendWebhook(ctx, event)
	}
	return nil
}

// emailRecipient picks the address for an e-mail notification. Internal notes
// never leave the support team.
func emailRecipient(event events.Event) (string, bool) {
	switch payload := event.Payload.(type) {
	case events.PasswordResetPayload:
		return payload.Email, payload.Email != ""
	case events.CallMessageAddedPayload:
		return "", payload.MessageType != domain.MessageTypeInternalNote
	default:
		return "", true
	}
}

func (n *NotificationService) sendEmail(_ context.Context, event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))
}
