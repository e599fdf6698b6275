package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/events"
)

// NotificationTopic is the bus topic carrying dashboard notifications.
const NotificationTopic = "dashboard.notifications"

type notificationStore interface {
	Save(ctx context.Context, n models.Notification) error
	List(ctx context.Context, viewID string) ([]models.Notification, error)
	Delete(ctx context.Context, viewID, id string) error
}

// NotificationService publishes transient notifications to the bus and
// materialises consumed ones into a per view store.
type NotificationService struct {
	publisher message.Publisher
	store     notificationStore
	topic     string
	ttl       time.Duration
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NotificationConfig tunes the notification service.
type NotificationConfig struct {
	Topic string
	TTL   time.Duration
}

// NewNotificationService constructs the service.
func NewNotificationService(publisher message.Publisher, store notificationStore, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Topic == "" {
		cfg.Topic = NotificationTopic
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return &NotificationService{
		publisher: publisher,
		store:     store,
		topic:     cfg.Topic,
		ttl:       cfg.TTL,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Publish sends a notification addressed to viewID.
func (s *NotificationService) Publish(ctx context.Context, viewID string, level models.NotificationLevel, title, text string) (*models.Notification, error) {
	if s == nil || s.publisher == nil || viewID == "" {
		return nil, nil
	}
	now := s.now().UTC()
	n := models.Notification{
		ID:        uuid.NewString(),
		ViewID:    viewID,
		Level:     level,
		Title:     title,
		Message:   text,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	msg := events.NewMessage(n.ID, payload, map[string]string{
		"view_id": viewID,
		"level":   string(level),
	})
	msg.SetContext(ctx)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.logger.Warn("notification publish failed", zap.String("view_id", viewID), zap.Error(err))
		return nil, fmt.Errorf("publish notification: %w", err)
	}
	s.metrics.RecordNotification(level)
	return &n, nil
}

// NotifyFailure publishes an error notification titled after the error class.
func (s *NotificationService) NotifyFailure(ctx context.Context, viewID string, err error) {
	if err == nil {
		return
	}
	appErr := appErrors.FromError(err)
	if _, pubErr := s.Publish(ctx, viewID, models.NotificationError, failureTitle(appErr), appErr.Message); pubErr != nil {
		s.logger.Warn("failure notification dropped", zap.Error(pubErr))
	}
}

func failureTitle(err *appErrors.Error) string {
	switch err.Code {
	case appErrors.ErrNetworkFailure.Code:
		return "Score source unreachable"
	case appErrors.ErrMalformedResponse.Code:
		return "Unexpected score data"
	case appErrors.ErrPageLimitExceeded.Code:
		return "Too many score pages"
	case appErrors.ErrUpstream.Code:
		return "Request rejected"
	default:
		return "Error"
	}
}

// Run consumes notifications from subscriber into the store until ctx ends.
func (s *NotificationService) Run(ctx context.Context, subscriber message.Subscriber) error {
	messages, err := subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	for msg := range messages {
		// Notifications live for seconds, so a failed store write drops the
		// message instead of redelivering it.
		if err := s.consume(ctx, msg); err != nil {
			s.logger.Warn("notification dropped", zap.String("message_id", msg.UUID), zap.Error(err))
		}
		msg.Ack()
	}
	return nil
}

func (s *NotificationService) consume(ctx context.Context, msg *message.Message) error {
	var n models.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		s.logger.Warn("discarding undecodable notification", zap.String("message_id", msg.UUID), zap.Error(err))
		return nil
	}
	if n.Expired(s.now()) {
		return nil
	}
	return s.store.Save(ctx, n)
}

// List returns live notifications of a view.
func (s *NotificationService) List(ctx context.Context, viewID string) ([]models.Notification, error) {
	if viewID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "X-View-ID header is required")
	}
	items, err := s.store.List(ctx, viewID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, nil
}

// Dismiss removes a notification before it expires.
func (s *NotificationService) Dismiss(ctx context.Context, viewID, id string) error {
	if viewID == "" || id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "view id and notification id are required")
	}
	if err := s.store.Delete(ctx, viewID, id); err != nil && !errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to dismiss notification")
	}
	return nil
}
