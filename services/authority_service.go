package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
)

const msgAuthorityMissing = "Authority not found."

// AuthorityService handles authority onboarding. Only approved authorities
// are eligible for report assignment.
type AuthorityService interface {
	RequestRegistration(ctx context.Context, req *models.AuthorityRegistrationRequest) (*models.Authority, error)
	UpdateApproval(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, reason string) (*models.Authority, error)
	GetAuthority(ctx context.Context, id uuid.UUID) (*models.Authority, error)
	ListAuthorities(ctx context.Context, q models.AuthorityQuery) (*models.AuthorityPage, error)
}

type authorityService struct {
	Config        *config.Config
	directory     db.DirectoryRepository
	notifications NotificationService
	logger        *slog.Logger
}

func NewAuthorityService(directory db.DirectoryRepository, notifications NotificationService, conf *config.Config, logger *slog.Logger) AuthorityService {
	return &authorityService{
		Config:        conf,
		directory:     directory,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *authorityService) RequestRegistration(ctx context.Context, req *models.AuthorityRegistrationRequest) (*models.Authority, error) {
	if len(req.Location) != 2 {
		return nil, errs.Validation("Invalid coordinates format").With("field", "coordinates")
	}
	if err := req.Point().Validate(); err != nil {
		return nil, errs.Validation(err.Error()).With("field", "coordinates")
	}

	authority := &models.Authority{
		Name:           req.Name,
		Email:          req.Email,
		Longitude:      req.Location[0],
		Latitude:       req.Location[1],
		Address:        req.Address,
		ApprovalStatus: models.ApprovalPending,
	}
	if err := s.directory.CreateAuthority(ctx, authority); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, errs.Conflict("An authority with this email already exists.").With("field", "email")
		}
		return nil, storageError(err, "")
	}

	if _, err := s.notifications.Dispatch(context.WithoutCancel(ctx), nil, models.RoleAdmin,
		"New authority request: "+authority.Name, "/admin/authorities"); err != nil {
		s.logger.Error("admin notification failed", "authority_id", authority.ID, "error", err)
	}
	return authority, nil
}

// UpdateApproval moves an authority to approved, rejected or suspended and
// tells the authority about it. A rejection must carry a reason, which is
// passed on in the notification.
func (s *authorityService) UpdateApproval(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, reason string) (*models.Authority, error) {
	if status == models.ApprovalPending {
		return nil, errs.Validation("Authorities cannot be moved back to pending.")
	}
	reason = strings.TrimSpace(reason)
	if status == models.ApprovalRejected && reason == "" {
		return nil, errs.Validation("A reason is required to reject an authority.").With("field", "reason")
	}
	current, err := s.directory.FindAuthorityByID(ctx, id)
	if err != nil {
		return nil, storageError(err, msgAuthorityMissing)
	}
	if current.ApprovalStatus == status {
		return nil, errs.Conflict(fmt.Sprintf("Authority is already %s.", status)).
			With("current", string(status))
	}

	updated, err := s.directory.SetApprovalStatus(ctx, id, status)
	if err != nil {
		return nil, storageError(err, msgAuthorityMissing)
	}

	message := fmt.Sprintf("Your authority account has been %s.", status)
	if reason != "" {
		message += " Reason: " + reason
	}
	authorityID := updated.ID
	if _, err := s.notifications.Dispatch(context.WithoutCancel(ctx), &authorityID, models.RoleAuthority,
		message, "/authority/profile"); err != nil {
		s.logger.Error("authority notification failed", "authority_id", authorityID, "error", err)
	}
	return updated, nil
}

func (s *authorityService) GetAuthority(ctx context.Context, id uuid.UUID) (*models.Authority, error) {
	authority, err := s.directory.FindAuthorityByID(ctx, id)
	if err != nil {
		return nil, storageError(err, msgAuthorityMissing)
	}
	return authority, nil
}

func (s *authorityService) ListAuthorities(ctx context.Context, q models.AuthorityQuery) (*models.AuthorityPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = models.DefaultAuthorityPageSize
	}
	if q.Near != nil && q.Radius <= 0 {
		q.Radius = models.DefaultAuthorityRadius
	}
	page, err := s.directory.ListAuthorities(ctx, q)
	if err != nil {
		return nil, errs.Dependency(err, "could not load authorities")
	}
	return page, nil
}
