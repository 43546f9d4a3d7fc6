// Package ports defines the interfaces between the display cycle and the
// outside world. Adapters implement them; the app layer depends only on them.
//
// Port conventions:
//   - Context is the first parameter of every blocking call
//   - Methods return domain types, never transport DTOs
//   - Failures are domain errors (ErrDatasetLoad, ErrTimeUnavailable, ErrWeatherFetch)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/authorclock/internal/domain"
)

// DatasetLoader loads the quote dataset once at startup.
type DatasetLoader interface {
	// Load returns every record in dataset order.
	// Returns a domain.DatasetLoadError on any transport, status or format failure.
	Load(ctx context.Context) ([]domain.Quote, error)
}

// NetworkTimeSource queries an external time service.
type NetworkTimeSource interface {
	// Now returns the network's current time. It makes a single attempt.
	Now(ctx context.Context) (time.Time, error)
}

// WeatherProvider returns current conditions for the configured location.
type WeatherProvider interface {
	// Current returns a domain.WeatherFetchError on failure.
	Current(ctx context.Context) (domain.Weather, error)
}
