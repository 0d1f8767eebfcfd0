package services

import (
	"errors"

	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
)

// storageError maps repository sentinels onto the service error kinds.
func storageError(err error, missing string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return errs.NotFound(missing)
	case errors.Is(err, db.ErrDuplicate):
		return errs.Conflict("record already exists")
	}
	return errs.Dependency(err, "storage unavailable")
}
