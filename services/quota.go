package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
)

// QuotaGuard enforces the per-citizen daily submission cap. Check is a
// read-only fast path; Reserve is the atomic increment that actually holds
// the line under concurrency.
type QuotaGuard interface {
	Check(citizen *models.Citizen) error
	Reserve(ctx context.Context, citizen *models.Citizen) error
	Release(ctx context.Context, citizenID uuid.UUID) error
}

type quotaGuard struct {
	directory db.DirectoryRepository
}

func NewQuotaGuard(directory db.DirectoryRepository) QuotaGuard {
	return &quotaGuard{directory: directory}
}

func limitReached(limit int) error {
	return errs.LimitExceeded(fmt.Sprintf("Report limit reached. Only %d reports allowed per day.", limit))
}

func (q *quotaGuard) Check(citizen *models.Citizen) error {
	if !citizen.CanSubmit() {
		return limitReached(citizen.SubmissionLimit)
	}
	return nil
}

func (q *quotaGuard) Reserve(ctx context.Context, citizen *models.Citizen) error {
	err := q.directory.ReserveSubmission(ctx, citizen.ID)
	if errors.Is(err, db.ErrQuotaExceeded) {
		return limitReached(citizen.SubmissionLimit)
	}
	return storageError(err, "Citizen not found.")
}

// Release hands back a reservation whose report was never stored.
func (q *quotaGuard) Release(ctx context.Context, citizenID uuid.UUID) error {
	return storageError(q.directory.ReleaseSubmission(ctx, citizenID), "Citizen not found.")
}
