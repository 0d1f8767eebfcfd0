package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/wastewatch/models"
	"gorm.io/gorm"
)

// RewardRepository reads the ledger written by ReportRepository.ResolveAndReward.
type RewardRepository interface {
	GetRewardByReportID(ctx context.Context, reportID uuid.UUID) (*models.Reward, error)
	ListByCitizen(ctx context.Context, citizenID uuid.UUID) ([]models.Reward, error)
	GetAllRewards(ctx context.Context) ([]models.Reward, error)
	SumAllRewards(ctx context.Context) (int, error)
}

type rewardRepo struct {
	DB *gorm.DB
}

func NewRewardRepo(db *GormDB) RewardRepository {
	return &rewardRepo{db.DB}
}

func (r *rewardRepo) GetRewardByReportID(ctx context.Context, reportID uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.DB.WithContext(ctx).Where("report_id = ?", reportID).First(&reward).Error; err != nil {
		return nil, translate(err, "find reward")
	}
	return &reward, nil
}

func (r *rewardRepo) ListByCitizen(ctx context.Context, citizenID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.DB.WithContext(ctx).Where("citizen_id = ?", citizenID).Order("created_at DESC").Find(&rewards).Error
	if err != nil {
		return nil, errors.Wrap(err, "list citizen rewards")
	}
	return rewards, nil
}

func (r *rewardRepo) GetAllRewards(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&rewards).Error; err != nil {
		return nil, errors.Wrap(err, "list rewards")
	}
	return rewards, nil
}

func (r *rewardRepo) SumAllRewards(ctx context.Context) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).Model(&models.Reward{}).Select("COALESCE(SUM(points), 0)").Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "sum rewards")
	}
	return total, nil
}
