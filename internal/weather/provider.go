package weather

import (
	"context"
)

// Provider abstracts the upstream geocoding and current weather API.
// Implementations perform exactly one HTTP request per call and return
// *Error values classified as KindUpstreamUnavailable or KindUpstreamProtocol.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, q GeocodeQuery) (GeocodeResult, error)
	CurrentWeather(ctx context.Context, q WeatherQuery) (NormalizedWeather, error)
}
