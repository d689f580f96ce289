package interfaces

import (
	"context"

	"github.com/natek434/gardenit/models"
)

// External collaborator contracts. Both are injected into the engine so
// tests substitute fakes without touching global state.

// Forecaster fetches a short-term forecast summary for a coordinate.
type Forecaster interface {
	FetchSnapshot(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// Mailer is the outbound message capability. Delivery failures are
// logged by callers, never retried here.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}
