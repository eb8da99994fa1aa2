// Package lookup provides the weather and traffic collaborators consumed by
// the context adjuster, plus a small TTL cache that avoids repeated network
// calls within a scheduling pass.
//
// Both providers share one contract: a (nil, nil) return means "no data,
// not configured" and callers skip the factor; a non-nil error means the
// lookup itself failed and callers fall back to standard timing.
package lookup

import (
	"context"
	"time"

	"remindcal/internal/models"
)

// WeatherProvider returns a forecast for a location around the given time.
type WeatherProvider interface {
	Weather(ctx context.Context, loc models.Location, at time.Time) (*models.WeatherInfo, error)
}

// TrafficProvider returns route conditions between two locations for a
// departure around the given time.
type TrafficProvider interface {
	Traffic(ctx context.Context, origin, destination models.Location, at time.Time) (*models.TrafficInfo, error)
}
