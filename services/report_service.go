package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/metrics"
	"github.com/techagentng/wastewatch/models"
)

const (
	minDescriptionLength = 10

	msgInvalidTarget = "Invalid status. Allowed transitions: Pending → InProgress → Resolved."
	msgReportMissing = "Report not found."
	msgCitizenAbsent = "Citizen not found."
)

var tracer = otel.Tracer("github.com/techagentng/wastewatch/services")

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	Subject uuid.UUID
	Role    models.Role
}

// Scope is the slice of reports the actor may read.
func (a Actor) Scope() models.ReportScope {
	switch a.Role {
	case models.RoleCitizen:
		return models.ReportScope{ReportedBy: &a.Subject}
	case models.RoleAuthority:
		return models.ReportScope{AssignedTo: &a.Subject}
	}
	return models.ReportScope{}
}

func (a Actor) canSee(r *models.Report) bool {
	switch a.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return r.ReportedBy == a.Subject
	case models.RoleAuthority:
		return r.AssignedTo == a.Subject
	}
	return false
}

// ReportService is the report lifecycle engine: assignment on creation and
// the Pending -> InProgress -> Resolved state machine.
type ReportService interface {
	CreateReport(ctx context.Context, citizenID uuid.UUID, req *models.CreateReportRequest) (*models.CreateReportResult, error)
	TransitionStatus(ctx context.Context, reportID uuid.UUID, requested string, actor Actor) (*models.TransitionResult, error)
	GetReport(ctx context.Context, reportID uuid.UUID, actor Actor) (*models.Report, error)
	ListReports(ctx context.Context, actor Actor, q models.ReportQuery) ([]models.Report, error)
}

type reportService struct {
	Config        *config.Config
	reports       db.ReportRepository
	directory     db.DirectoryRepository
	locator       GeoLocator
	quota         QuotaGuard
	notifications NotificationService
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

func NewReportService(
	reports db.ReportRepository,
	directory db.DirectoryRepository,
	locator GeoLocator,
	quota QuotaGuard,
	notifications NotificationService,
	conf *config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) ReportService {
	return &reportService{
		Config:        conf,
		reports:       reports,
		directory:     directory,
		locator:       locator,
		quota:         quota,
		notifications: notifications,
		logger:        logger,
		metrics:       m,
	}
}

func validateReport(req *models.CreateReportRequest) (models.Category, error) {
	if len(req.Location.Coordinates) != 2 {
		return "", errs.Validation("Invalid coordinates format").With("field", "location.coordinates")
	}
	if err := req.Point().Validate(); err != nil {
		return "", errs.Validation(err.Error()).With("field", "location.coordinates")
	}
	if strings.TrimSpace(req.Location.Address) == "" {
		return "", errs.Validation("Address is required").With("field", "location.address")
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return "", errs.Validation("Category must be one of: Organic, Inorganic, Mixed.").With("field", "category")
	}
	if len([]rune(strings.TrimSpace(req.Description))) < minDescriptionLength {
		return "", errs.Validation("Description must be at least 10 characters long.").With("field", "description")
	}
	u, err := url.ParseRequestURI(req.ImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errs.Validation("Image URL must be a valid URL.").With("field", "imageUrl")
	}
	return category, nil
}

func (s *reportService) CreateReport(ctx context.Context, citizenID uuid.UUID, req *models.CreateReportRequest) (result *models.CreateReportResult, err error) {
	ctx, span := tracer.Start(ctx, "ReportService.CreateReport",
		trace.WithAttributes(attribute.String("citizen.id", citizenID.String())))
	defer func() {
		if err != nil {
			s.metrics.ReportCreationFailures.WithLabelValues(string(errs.KindOf(err))).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	category, err := validateReport(req)
	if err != nil {
		return nil, err
	}

	citizen, err := s.directory.FindCitizenByID(ctx, citizenID)
	if err != nil {
		return nil, storageError(err, msgCitizenAbsent)
	}
	if err := s.quota.Check(citizen); err != nil {
		return nil, err
	}

	authority, distance, err := s.locator.FindNearestEligible(ctx, req.Point())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("authority.id", authority.ID.String()), attribute.Float64("distance_m", distance))

	if err := s.quota.Reserve(ctx, citizen); err != nil {
		return nil, err
	}

	report := &models.Report{
		ReportedBy:  citizen.ID,
		AssignedTo:  authority.ID,
		Longitude:   req.Location.Coordinates[0],
		Latitude:    req.Location.Coordinates[1],
		Address:     req.Location.Address,
		Category:    category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Status:      models.StatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		if relErr := s.quota.Release(context.WithoutCancel(ctx), citizen.ID); relErr != nil {
			s.logger.Error("releasing submission slot failed", "citizen_id", citizen.ID, "error", relErr)
		}
		return nil, errs.Dependency(err, "could not store report")
	}
	s.metrics.ReportsCreated.Inc()

	// From here on the report exists and is authoritative. Follow-up writes
	// are best effort and never fail the request.
	detached := context.WithoutCancel(ctx)
	s.linkReport(detached, report)

	authorityID := authority.ID
	s.notify(detached, &authorityID, models.RoleAuthority,
		"A new waste report has been submitted in your area. Please review and take necessary action.",
		"/authority/reports/"+report.ID.String())
	s.notify(detached, nil, models.RoleAdmin,
		fmt.Sprintf("Citizen submitted a waste report near %s. Assigned to %s.", report.Address, authority.Name),
		"/admin/reports")

	return &models.CreateReportResult{
		Message:  fmt.Sprintf("Waste report submitted successfully to %s (%.2f meters away).", authority.Name, distance),
		Report:   report,
		Distance: distance,
	}, nil
}

// linkReport appends the report to both owners' backlink sets concurrently.
// Each side is attempted even if the other fails.
func (s *reportService) linkReport(ctx context.Context, report *models.Report) {
	var g errgroup.Group
	g.Go(func() error {
		if err := s.directory.AppendCitizenReport(ctx, report.ReportedBy, report.ID); err != nil {
			s.metrics.BacklinkFailures.WithLabelValues("citizen").Inc()
			return fmt.Errorf("citizen backlink: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.directory.AppendAuthorityReport(ctx, report.AssignedTo, report.ID); err != nil {
			s.metrics.BacklinkFailures.WithLabelValues("authority").Inc()
			return fmt.Errorf("authority backlink: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("report stored with incomplete backlinks",
			"report_id", report.ID, "citizen_id", report.ReportedBy, "authority_id", report.AssignedTo, "error", err)
	}
}

func (s *reportService) notify(ctx context.Context, audienceID *uuid.UUID, role models.Role, message, link string) {
	if _, err := s.notifications.Dispatch(ctx, audienceID, role, message, link); err != nil {
		s.logger.Error("notification dispatch failed", "role", role, "error", err)
	}
}

func (s *reportService) TransitionStatus(ctx context.Context, reportID uuid.UUID, requested string, actor Actor) (result *models.TransitionResult, err error) {
	ctx, span := tracer.Start(ctx, "ReportService.TransitionStatus",
		trace.WithAttributes(attribute.String("report.id", reportID.String()), attribute.String("requested", requested)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, storageError(err, msgReportMissing)
	}
	if err := authorizeTransition(actor, report); err != nil {
		return nil, err
	}

	// a resolved report answers AlreadyTerminal whatever was requested
	target, perr := models.ParseStatus(requested)
	if !report.Status.Terminal() && (perr != nil || !target.Requestable()) {
		next, _ := report.Status.Next()
		return nil, errs.InvalidTransition(msgInvalidTarget).
			With("requested", requested).
			With("current", string(report.Status)).
			With("allowed", string(next))
	}
	if err := checkTransition(report.Status, target); err != nil {
		return nil, err
	}

	var reward *models.Reward
	switch target {
	case models.StatusInProgress:
		report, err = s.reports.UpdateStatus(ctx, reportID, report.Status, target)
	case models.StatusResolved:
		report, reward, err = s.reports.ResolveAndReward(ctx, reportID, report.Status)
	}
	if err != nil {
		if errors.Is(err, db.ErrStatusConflict) {
			return nil, s.conflictOutcome(ctx, reportID)
		}
		return nil, storageError(err, msgReportMissing)
	}
	s.metrics.Transitions.WithLabelValues(string(target)).Inc()

	if reward != nil {
		s.metrics.RewardsCredited.Inc()
		s.announceResolution(context.WithoutCancel(ctx), report, reward)
	}

	return &models.TransitionResult{
		Message: fmt.Sprintf("Status updated to '%s' successfully.", report.Status),
		Report:  report,
	}, nil
}

func authorizeTransition(actor Actor, report *models.Report) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleAuthority:
		if report.AssignedTo == actor.Subject {
			return nil
		}
		return errs.Forbidden("Report is not assigned to this authority.")
	}
	return errs.Forbidden("Only authorities and admins may change report status.")
}

// checkTransition enforces the state graph: Resolved is terminal and the
// target must be the single successor of the current status.
func checkTransition(current, target models.Status) error {
	if current.Terminal() {
		return errs.AlreadyTerminal("Report is already resolved.").
			With("current", string(current))
	}
	next, _ := current.Next()
	if target != next {
		return errs.InvalidTransition(fmt.Sprintf(
			"Invalid status transition from '%s' to '%s'. Allowed: '%s'", current, target, next)).
			With("current", string(current)).
			With("requested", string(target)).
			With("allowed", string(next))
	}
	return nil
}

// conflictOutcome explains a lost compare-and-swap by re-reading the report.
func (s *reportService) conflictOutcome(ctx context.Context, reportID uuid.UUID) error {
	current, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return storageError(err, msgReportMissing)
	}
	if current.Status.Terminal() {
		return errs.AlreadyTerminal("Report is already resolved.").With("current", string(current.Status))
	}
	return errs.Conflict("Report status changed concurrently. Fetch the report and retry.").
		With("current", string(current.Status))
}

func (s *reportService) announceResolution(ctx context.Context, report *models.Report, reward *models.Reward) {
	citizenID := report.ReportedBy
	s.notify(ctx, &citizenID, models.RoleCitizen,
		fmt.Sprintf("Your waste report at %s has been resolved. You've earned %d credits!", report.Address, reward.Points),
		"/citizen/reports/"+report.ID.String())

	resolvedBy := "the assigned authority"
	if authority, err := s.directory.FindAuthorityByID(ctx, report.AssignedTo); err == nil {
		resolvedBy = authority.Name
	}
	s.notify(ctx, nil, models.RoleAdmin,
		fmt.Sprintf("Waste report at %s was resolved by %s.", report.Address, resolvedBy),
		"/admin/reports")
}

func (s *reportService) GetReport(ctx context.Context, reportID uuid.UUID, actor Actor) (*models.Report, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, storageError(err, msgReportMissing)
	}
	if !actor.canSee(report) {
		return nil, errs.NotFound(msgReportMissing)
	}
	return report, nil
}

func (s *reportService) ListReports(ctx context.Context, actor Actor, q models.ReportQuery) ([]models.Report, error) {
	if !actor.Role.Valid() {
		return nil, errs.Forbidden("unknown role")
	}
	reports, err := s.reports.List(ctx, actor.Scope(), q)
	if err != nil {
		return nil, errs.Dependency(err, "could not load reports")
	}
	return reports, nil
}
