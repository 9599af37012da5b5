// Package worker hosts background jobs started by the API binary.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/observability"
	"github.com/helpdeskhq/helpdesk/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// QueueLength reports how many clients are waiting for a chat.
type QueueLength interface {
	Len(ctx context.Context) (int64, error)
}

// QueueMonitor keeps the chat queue depth gauge current even when no request
// touches the queue, e.g. after another API replica accepted a chat.
type QueueMonitor struct {
	queue    QueueLength
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration
}

// NewQueueMonitor builds a monitor polling every interval.
func NewQueueMonitor(queue QueueLength, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *QueueMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &QueueMonitor{queue: queue, metrics: metrics, logger: logger, interval: interval}
}

// Run polls until ctx is cancelled.
func (m *QueueMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *QueueMonitor) poll(ctx context.Context) {
	depth, err := m.queue.Len(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("chat queue poll failed", zap.Error(err))
		}
		return
	}
	m.metrics.SetChatQueueDepth(depth)
}
