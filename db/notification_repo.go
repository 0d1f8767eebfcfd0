package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/wastewatch/models"
	"gorm.io/gorm"
)

// NotificationRepository stores fanout records. Reads and deletes are scoped to
// an audience: rows addressed to the subject plus the role-wide broadcasts.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, role models.Role, subject uuid.UUID, limit int) ([]models.Notification, error)
	DeleteAll(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error)
	DeleteOne(ctx context.Context, role models.Role, subject, id uuid.UUID) (bool, error)
	MarkRead(ctx context.Context, role models.Role, subject, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error)
}

type notificationRepo struct {
	DB *gorm.DB
}

func NewNotificationRepo(db *GormDB) NotificationRepository {
	return &notificationRepo{db.DB}
}

func (n *notificationRepo) scoped(ctx context.Context, role models.Role, subject uuid.UUID) *gorm.DB {
	return n.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("audience_role = ?", role).
		Where("(audience_id = ? OR audience_id IS NULL)", subject)
}

func (n *notificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	return translate(n.DB.WithContext(ctx).Create(notification).Error, "create notification")
}

func (n *notificationRepo) List(ctx context.Context, role models.Role, subject uuid.UUID, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := n.scoped(ctx, role, subject).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return notifications, nil
}

func (n *notificationRepo) DeleteAll(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error) {
	res := n.scoped(ctx, role, subject).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete notifications")
	}
	return res.RowsAffected, nil
}

func (n *notificationRepo) DeleteOne(ctx context.Context, role models.Role, subject, id uuid.UUID) (bool, error) {
	res := n.scoped(ctx, role, subject).Where("id = ?", id).Delete(&models.Notification{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "delete notification")
	}
	return res.RowsAffected > 0, nil
}

func (n *notificationRepo) MarkRead(ctx context.Context, role models.Role, subject, id uuid.UUID) (bool, error) {
	res := n.scoped(ctx, role, subject).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "mark notification read")
	}
	return res.RowsAffected > 0, nil
}

func (n *notificationRepo) MarkAllRead(ctx context.Context, role models.Role, subject uuid.UUID) (int64, error) {
	res := n.scoped(ctx, role, subject).Where("read = ?", false).Update("read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark notifications read")
	}
	return res.RowsAffected, nil
}
