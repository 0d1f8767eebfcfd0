package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/wastewatch/geo"
	"github.com/techagentng/wastewatch/models"
	"gorm.io/gorm"
)

// DirectoryRepository is the subset of citizen and authority storage the
// lifecycle engine reads and mutates.
type DirectoryRepository interface {
	CreateCitizen(ctx context.Context, citizen *models.Citizen) error
	FindCitizenByID(ctx context.Context, id uuid.UUID) (*models.Citizen, error)
	// ReserveSubmission increments the citizen's daily counter only while it
	// is below the limit. Returns ErrQuotaExceeded when no slot is left.
	ReserveSubmission(ctx context.Context, citizenID uuid.UUID) error
	ReleaseSubmission(ctx context.Context, citizenID uuid.UUID) error
	AppendCitizenReport(ctx context.Context, citizenID, reportID uuid.UUID) error

	CreateAuthority(ctx context.Context, authority *models.Authority) error
	FindAuthorityByID(ctx context.Context, id uuid.UUID) (*models.Authority, error)
	// ListAuthorities pages through the directory. Queries around a point
	// are ordered closest first, others newest first.
	ListAuthorities(ctx context.Context, q models.AuthorityQuery) (*models.AuthorityPage, error)
	SetApprovalStatus(ctx context.Context, id uuid.UUID, status models.ApprovalStatus) (*models.Authority, error)
	AppendAuthorityReport(ctx context.Context, authorityID, reportID uuid.UUID) error
	// FindNearestApprovedAuthority returns the approved authority closest to
	// p and its distance in meters. Ties go to the earliest registered.
	FindNearestApprovedAuthority(ctx context.Context, p geo.Point) (*models.Authority, float64, error)
}

type directoryRepo struct {
	DB *gorm.DB
}

func NewDirectoryRepo(db *GormDB) DirectoryRepository {
	return &directoryRepo{db.DB}
}

func (d *directoryRepo) CreateCitizen(ctx context.Context, citizen *models.Citizen) error {
	return translate(d.DB.WithContext(ctx).Create(citizen).Error, "create citizen")
}

func (d *directoryRepo) FindCitizenByID(ctx context.Context, id uuid.UUID) (*models.Citizen, error) {
	var citizen models.Citizen
	if err := d.DB.WithContext(ctx).Where("id = ?", id).First(&citizen).Error; err != nil {
		return nil, translate(err, "find citizen")
	}
	return &citizen, nil
}

func (d *directoryRepo) ReserveSubmission(ctx context.Context, citizenID uuid.UUID) error {
	res := d.DB.WithContext(ctx).Model(&models.Citizen{}).
		Where("id = ? AND submission_count < submission_limit", citizenID).
		Updates(map[string]interface{}{
			"submission_count": gorm.Expr("submission_count + 1"),
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "reserve submission")
	}
	if res.RowsAffected == 0 {
		if _, err := d.FindCitizenByID(ctx, citizenID); err != nil {
			return err
		}
		return ErrQuotaExceeded
	}
	return nil
}

func (d *directoryRepo) ReleaseSubmission(ctx context.Context, citizenID uuid.UUID) error {
	err := d.DB.WithContext(ctx).Model(&models.Citizen{}).
		Where("id = ?", citizenID).
		Update("submission_count", gorm.Expr("GREATEST(submission_count - 1, 0)")).Error
	return translate(err, "release submission")
}

func (d *directoryRepo) AppendCitizenReport(ctx context.Context, citizenID, reportID uuid.UUID) error {
	return d.appendReport(ctx, &models.Citizen{}, citizenID, reportID)
}

func (d *directoryRepo) AppendAuthorityReport(ctx context.Context, authorityID, reportID uuid.UUID) error {
	return d.appendReport(ctx, &models.Authority{}, authorityID, reportID)
}

func (d *directoryRepo) appendReport(ctx context.Context, model interface{}, ownerID, reportID uuid.UUID) error {
	res := d.DB.WithContext(ctx).Model(model).
		Where("id = ?", ownerID).
		Update("report_ids", gorm.Expr("array_append(COALESCE(report_ids, '{}'), ?)", reportID.String()))
	if res.Error != nil {
		return errors.Wrap(res.Error, "append report backlink")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *directoryRepo) CreateAuthority(ctx context.Context, authority *models.Authority) error {
	return translate(d.DB.WithContext(ctx).Create(authority).Error, "create authority")
}

func (d *directoryRepo) FindAuthorityByID(ctx context.Context, id uuid.UUID) (*models.Authority, error) {
	var authority models.Authority
	if err := d.DB.WithContext(ctx).Where("id = ?", id).First(&authority).Error; err != nil {
		return nil, translate(err, "find authority")
	}
	return &authority, nil
}

func (d *directoryRepo) ListAuthorities(ctx context.Context, q models.AuthorityQuery) (*models.AuthorityPage, error) {
	tx := d.DB.WithContext(ctx).Model(&models.Authority{})
	if q.Status != "" {
		tx = tx.Where("approval_status = ?", q.Status)
	}
	if q.City != "" {
		tx = tx.Where("address ILIKE ?", "%"+q.City+"%")
	}
	if q.Near != nil {
		tx = tx.Where(distanceExpr+" <= ?", q.Near.Latitude, q.Near.Latitude, q.Near.Longitude, q.Radius)
	}
	base := tx.Session(&gorm.Session{})

	page := &models.AuthorityPage{Page: q.Page, Limit: q.Limit}
	if err := base.Count(&page.Total).Error; err != nil {
		return nil, errors.Wrap(err, "count authorities")
	}

	rows := base.Offset(q.Offset()).Limit(q.Limit)
	if q.Near != nil {
		rows = rows.Select("authorities.*, "+distanceExpr+" AS distance", q.Near.Latitude, q.Near.Latitude, q.Near.Longitude).
			Order("distance ASC, created_at ASC, id ASC")
	} else {
		rows = rows.Order("created_at DESC")
	}
	page.Authorities = []models.AuthorityListing{}
	if err := rows.Scan(&page.Authorities).Error; err != nil {
		return nil, errors.Wrap(err, "list authorities")
	}
	return page, nil
}

func (d *directoryRepo) SetApprovalStatus(ctx context.Context, id uuid.UUID, status models.ApprovalStatus) (*models.Authority, error) {
	res := d.DB.WithContext(ctx).Model(&models.Authority{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"approval_status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "set approval status")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return d.FindAuthorityByID(ctx, id)
}

// haversine in SQL, argument order: lat, lat, lon. LEAST guards asin against
// values drifting past 1.
const distanceExpr = `(2 * 6371008.8 * asin(sqrt(LEAST(1.0,
	power(sin(radians((? - latitude) / 2)), 2) +
	cos(radians(latitude)) * cos(radians(?)) * power(sin(radians((? - longitude) / 2)), 2)))))`

type authorityDistance struct {
	models.Authority
	Distance float64
}

func (d *directoryRepo) FindNearestApprovedAuthority(ctx context.Context, p geo.Point) (*models.Authority, float64, error) {
	var row authorityDistance
	err := d.DB.WithContext(ctx).
		Model(&models.Authority{}).
		Select("authorities.*, "+distanceExpr+" AS distance", p.Latitude, p.Latitude, p.Longitude).
		Where("approval_status = ?", models.ApprovalApproved).
		Order("distance ASC, created_at ASC, id ASC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "nearest authority")
	}
	if row.ID == uuid.Nil {
		return nil, 0, ErrNotFound
	}
	return &row.Authority, row.Distance, nil
}
