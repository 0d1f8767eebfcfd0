package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/metrics"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/realtime"
)

// NotificationService stores notifications and pushes them to live clients.
// Storage always comes first; the push is best effort.
type NotificationService interface {
	Dispatch(ctx context.Context, audienceID *uuid.UUID, role models.Role, message, link string) (*models.Notification, error)
	List(ctx context.Context, role models.Role, subject uuid.UUID) ([]models.Notification, error)
	DeleteAll(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error)
	DeleteOne(ctx context.Context, role models.Role, subject, id uuid.UUID) error
	MarkRead(ctx context.Context, role models.Role, subject, id uuid.UUID) error
	MarkAllRead(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error)
}

type notificationService struct {
	Config    *config.Config
	repo      db.NotificationRepository
	publisher realtime.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewNotificationService(repo db.NotificationRepository, publisher realtime.Publisher, conf *config.Config, logger *slog.Logger, m *metrics.Metrics) NotificationService {
	return &notificationService{
		Config:    conf,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

func (s *notificationService) Dispatch(ctx context.Context, audienceID *uuid.UUID, role models.Role, message, link string) (*models.Notification, error) {
	if !role.Valid() {
		return nil, errs.Validation("unknown audience role " + string(role))
	}
	n := &models.Notification{
		AudienceID:   audienceID,
		AudienceRole: role,
		Message:      message,
		Link:         link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, errs.Dependency(err, "could not store notification")
	}
	s.metrics.NotificationsSent.WithLabelValues(string(role)).Inc()

	room := n.Room()
	// the record is stored; a caller hanging up must not cancel the push
	if err := s.publisher.Publish(context.WithoutCancel(ctx), room, realtime.EventFromNotification(n)); err != nil {
		s.metrics.PublishFailures.Inc()
		s.logger.Warn("notification stored but not published",
			"notification_id", n.ID, "room", room, "error", err)
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, role models.Role, subject uuid.UUID) ([]models.Notification, error) {
	limit := s.Config.NotificationListLimit
	if limit <= 0 {
		limit = 100
	}
	notifications, err := s.repo.List(ctx, role, subject, limit)
	if err != nil {
		return nil, errs.Dependency(err, "could not load notifications")
	}
	return notifications, nil
}

func (s *notificationService) DeleteAll(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, role, subject)
	if err != nil {
		return 0, errs.Dependency(err, "could not delete notifications")
	}
	return n, nil
}

func (s *notificationService) DeleteOne(ctx context.Context, role models.Role, subject, id uuid.UUID) error {
	deleted, err := s.repo.DeleteOne(ctx, role, subject, id)
	if err != nil {
		return errs.Dependency(err, "could not delete notification")
	}
	if !deleted {
		return errs.NotFound("Notification not found.")
	}
	return nil
}

func (s *notificationService) MarkRead(ctx context.Context, role models.Role, subject, id uuid.UUID) error {
	updated, err := s.repo.MarkRead(ctx, role, subject, id)
	if err != nil {
		return errs.Dependency(err, "could not update notification")
	}
	if !updated {
		return errs.NotFound("Notification not found.")
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, role, subject)
	if err != nil {
		return 0, errs.Dependency(err, "could not update notifications")
	}
	return n, nil
}
