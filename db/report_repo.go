package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/wastewatch/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	List(ctx context.Context, scope models.ReportScope, q models.ReportQuery) ([]models.Report, error)
	// UpdateStatus moves the report from expected to next only if its
	// current status is still expected. Returns ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next models.Status) (*models.Report, error)
	// ResolveAndReward performs the expected->Resolved swap, credits the
	// reporting citizen and records the ledger entry as one unit.
	ResolveAndReward(ctx context.Context, id uuid.UUID, expected models.Status) (*models.Report, *models.Reward, error)
}

type reportRepo struct {
	DB *gorm.DB
}

func NewReportRepo(db *GormDB) ReportRepository {
	return &reportRepo{db.DB}
}

func (r *reportRepo) Create(ctx context.Context, report *models.Report) error {
	return translate(r.DB.WithContext(ctx).Create(report).Error, "create report")
}

func (r *reportRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, translate(err, "find report")
	}
	return &report, nil
}

func (r *reportRepo) List(ctx context.Context, scope models.ReportScope, q models.ReportQuery) ([]models.Report, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Report{})
	if scope.ReportedBy != nil {
		tx = tx.Where("reported_by = ?", *scope.ReportedBy)
	}
	if scope.AssignedTo != nil {
		tx = tx.Where("assigned_to = ?", *scope.AssignedTo)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: !q.Ascending})

	var reports []models.Report
	if err := tx.Find(&reports).Error; err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	return reports, nil
}

func (r *reportRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next models.Status) (*models.Report, error) {
	var report *models.Report
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := swapStatus(tx, id, expected, next)
		report = updated
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepo) ResolveAndReward(ctx context.Context, id uuid.UUID, expected models.Status) (*models.Report, *models.Reward, error) {
	var (
		report *models.Report
		reward *models.Reward
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := swapStatus(tx, id, expected, models.StatusResolved)
		if err != nil {
			return err
		}
		report = updated

		var citizen models.Citizen
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", report.ReportedBy).First(&citizen).Error; err != nil {
			return translate(err, "lock citizen")
		}

		res := tx.Model(&models.Citizen{}).Where("id = ?", citizen.ID).
			Update("reward_balance", gorm.Expr("reward_balance + reward_per_resolution"))
		if res.Error != nil {
			return errors.Wrap(res.Error, "credit citizen")
		}

		reward = &models.Reward{
			ReportID:     report.ID,
			CitizenID:    citizen.ID,
			Points:       citizen.RewardPerResolution,
			BalanceAfter: citizen.RewardBalance + citizen.RewardPerResolution,
		}
		if err := tx.Create(reward).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrStatusConflict
			}
			return errors.Wrap(err, "record reward")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return report, reward, nil
}

// swapStatus is the compare-and-swap on status. Zero rows affected means
// either the report is gone or someone else moved it first.
func swapStatus(tx *gorm.DB, id uuid.UUID, expected, next models.Status) (*models.Report, error) {
	res := tx.Model(&models.Report{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{"status": next, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update report status")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Report{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, errors.Wrap(err, "recheck report")
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrStatusConflict
	}

	var report models.Report
	if err := tx.Where("id = ?", id).First(&report).Error; err != nil {
		return nil, translate(err, "reload report")
	}
	return &report, nil
}
