package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// Broadcaster publishes a payload on a pub/sub channel.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationDispatcher persists notifications and broadcasts them to the
// recipient's channel. Delivery is best effort: failures are logged and
// counted but never returned to the caller of Notify.
type NotificationDispatcher struct {
	notifications repository.NotificationRepository
	broadcaster   Broadcaster
	logger        *zap.Logger
	metrics       *observability.Metrics
	cfg           config.NotificationConfig
}

// NewNotificationDispatcher constructs the dispatcher. broadcaster may be nil.
func NewNotificationDispatcher(
	notifications repository.NotificationRepository,
	broadcaster Broadcaster,
	logger *zap.Logger,
	metrics *observability.Metrics,
	cfg config.NotificationConfig,
) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
		metrics:       metrics,
		cfg:           cfg,
	}
}

// Notify stores one notification for userID and broadcasts it. It returns nil
// when the notification could not be stored.
func (d *NotificationDispatcher) Notify(ctx context.Context, userID, message string, typ domain.NotificationType) *domain.Notification {
	if userID == "" {
		return nil
	}
	n := &domain.Notification{
		UserID:  userID,
		Message: message,
		Type:    typ,
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		d.metrics.RecordNotificationFailure("store")
		d.logger.Warn("notification store failed",
			zap.String("user_id", userID),
			zap.String("type", string(typ)),
			zap.Error(err))
		return nil
	}
	d.broadcast(ctx, n)
	return n
}

// NotifyMany sends the same message to every distinct recipient.
func (d *NotificationDispatcher) NotifyMany(ctx context.Context, userIDs []string, message string, typ domain.NotificationType) []domain.Notification {
	seen := make(map[string]struct{}, len(userIDs))
	sent := make([]domain.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if n := d.Notify(ctx, id, message, typ); n != nil {
			sent = append(sent, *n)
		}
	}
	return sent
}

// ListForUser returns the actor's own notifications, newest first.
func (d *NotificationDispatcher) ListForUser(ctx context.Context, actor domain.Actor, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	items, err := d.notifications.ListByUser(ctx, actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return items, nil
}

// MarkRead flags a notification as read. Only its recipient may do so.
func (d *NotificationDispatcher) MarkRead(ctx context.Context, actor domain.Actor, id string) (*domain.Notification, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	n, err := d.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	if n.UserID != actor.UserID {
		return nil, apperrors.NewForbidden("notification belongs to another user", map[string]any{"notification_id": id})
	}
	if n.IsRead {
		return n, nil
	}
	if err := d.notifications.MarkRead(ctx, id); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	n.IsRead = true
	return n, nil
}

// Channel returns the pub/sub channel of a recipient.
func (d *NotificationDispatcher) Channel(userID string) string {
	return fmt.Sprintf("%s:%s", d.cfg.ChannelPrefix, userID)
}

func (d *NotificationDispatcher) broadcast(ctx context.Context, n *domain.Notification) {
	if !d.cfg.BroadcastEnabled || d.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		d.metrics.RecordNotificationFailure("encode")
		d.logger.Warn("notification encode failed", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}
	if err := d.broadcaster.Publish(ctx, d.Channel(n.UserID), payload); err != nil {
		d.metrics.RecordNotificationFailure("broadcast")
		d.logger.Warn("notification broadcast failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", d.Channel(n.UserID)),
			zap.Error(err))
	}
}
