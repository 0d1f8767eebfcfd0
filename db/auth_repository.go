package db

import (
	"context"
	"strings"
	"time"

	"github.com/techagentng/wastewatch/models"
	"gorm.io/gorm"
)

// AuthRepository tracks revoked bearer tokens. Issuing tokens is the identity
// service's job; this service only refuses the ones it has been told about.
type AuthRepository interface {
	AddToBlackList(ctx context.Context, blacklist *models.Blacklist) error
	IsTokenInBlacklist(ctx context.Context, token string) bool
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) AddToBlackList(ctx context.Context, blacklist *models.Blacklist) error {
	blacklist.Token = normalizeToken(blacklist.Token)
	err := a.DB.WithContext(ctx).Create(blacklist).Error
	if translated := translate(err, "blacklist token"); translated != ErrDuplicate {
		return translated
	}
	return nil
}

func normalizeToken(token string) string {
	return strings.TrimSpace(token)
}

func (a *authRepo) IsTokenInBlacklist(ctx context.Context, token string) bool {
	var count int64
	a.DB.WithContext(ctx).Model(&models.Blacklist{}).Where("token = ?", normalizeToken(token)).Count(&count)
	return count > 0
}

func (a *authRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := a.DB.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.Blacklist{})
	return res.RowsAffected, translate(res.Error, "purge blacklist")
}
