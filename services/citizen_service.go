package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
)

type CitizenService interface {
	// Enroll creates the citizen record for an authenticated subject. It is
	// idempotent: a subject that is already enrolled gets its record back.
	Enroll(ctx context.Context, subject uuid.UUID, name, email string) (*models.Citizen, error)
	GetCitizen(ctx context.Context, subject uuid.UUID) (*models.Citizen, error)
}

type citizenService struct {
	Config    *config.Config
	directory db.DirectoryRepository
}

func NewCitizenService(directory db.DirectoryRepository, conf *config.Config) CitizenService {
	return &citizenService{Config: conf, directory: directory}
}

func (s *citizenService) Enroll(ctx context.Context, subject uuid.UUID, name, email string) (*models.Citizen, error) {
	existing, err := s.directory.FindCitizenByID(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, storageError(err, msgCitizenAbsent)
	}

	citizen := &models.Citizen{
		Model:               models.Model{ID: subject},
		Name:                strings.TrimSpace(name),
		Email:               strings.ToLower(strings.TrimSpace(email)),
		SubmissionLimit:     s.Config.DefaultSubmissionLimit,
		RewardPerResolution: s.Config.DefaultRewardPerReport,
	}
	if err := s.directory.CreateCitizen(ctx, citizen); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, errs.Conflict("A citizen with this email already exists.").With("field", "email")
		}
		return nil, storageError(err, msgCitizenAbsent)
	}
	return citizen, nil
}

func (s *citizenService) GetCitizen(ctx context.Context, subject uuid.UUID) (*models.Citizen, error) {
	citizen, err := s.directory.FindCitizenByID(ctx, subject)
	if err != nil {
		return nil, storageError(err, msgCitizenAbsent)
	}
	return citizen, nil
}
