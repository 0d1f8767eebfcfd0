package services

import (
	"context"
	"errors"
	"time"

	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/geo"
	"github.com/techagentng/wastewatch/metrics"
	"github.com/techagentng/wastewatch/models"
)

const msgNoAuthority = "No eligible authority found near this location."

// GeoLocator picks the approved authority nearest to a coordinate.
type GeoLocator interface {
	FindNearestEligible(ctx context.Context, p geo.Point) (*models.Authority, float64, error)
}

type geoLocator struct {
	directory db.DirectoryRepository
	timeout   time.Duration
	metrics   *metrics.Metrics
}

func NewGeoLocator(directory db.DirectoryRepository, conf *config.Config, m *metrics.Metrics) GeoLocator {
	return &geoLocator{directory: directory, timeout: conf.GeoLookupTimeout, metrics: m}
}

// FindNearestEligible runs the lookup under the configured timeout. Expiry is
// reported as not found and is not retried.
func (g *geoLocator) FindNearestEligible(ctx context.Context, p geo.Point) (*models.Authority, float64, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, errs.Validation(err.Error())
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	authority, distance, err := g.directory.FindNearestApprovedAuthority(ctx, p)
	g.metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return authority, distance, nil
	case errors.Is(err, db.ErrNotFound):
		return nil, 0, errs.NotFound(msgNoAuthority)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, 0, errs.NotFound(msgNoAuthority).With("reason", "lookup timed out")
	}
	return nil, 0, errs.Dependency(err, "authority lookup failed")
}
