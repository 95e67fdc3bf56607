package weather

import (
	"context"
	"log/slog"
)

// Service turns a city name into a weather report: geocode, fetch, validate,
// format. It holds no per-request state and is safe for concurrent use.
type Service struct {
	apiKey   string
	provider Provider
	logger   *slog.Logger
}

// NewService creates a new Service. An empty apiKey is accepted here and
// reported as KindConfiguration on every query.
func NewService(apiKey string, provider Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		apiKey:   apiKey,
		provider: provider,
		logger:   logger,
	}
}

// GetCurrentWeather runs the two upstream calls in sequence and formats the
// result. No step is retried.
func (s *Service) GetCurrentWeather(ctx context.Context, req GetWeatherRequest) (GetWeatherResponse, error) {
	if s.apiKey == "" {
		s.logger.Error("weather query rejected", "error", ErrMissingAPIKey)
		return GetWeatherResponse{}, NewError(KindConfiguration, "get current weather", ErrMissingAPIKey)
	}

	units := req.Unit.SystemCode()

	s.logger.Info("getting geocode", "location", req.Location, "provider", s.provider.Name())
	coords, err := s.provider.Geocode(ctx, GeocodeQuery{
		Location: req.Location,
		APIKey:   s.apiKey,
		Units:    units,
	})
	if err != nil {
		return GetWeatherResponse{}, classify(err, "geocode")
	}

	s.logger.Info("getting weather", "location", req.Location, "lat", coords.Latitude, "lon", coords.Longitude)
	payload, err := s.provider.CurrentWeather(ctx, WeatherQuery{
		Coordinates: coords,
		APIKey:      s.apiKey,
		Units:       units,
	})
	if err != nil {
		return GetWeatherResponse{}, classify(err, "get weather")
	}
	s.logger.Debug("weather payload", "location", req.Location, "payload", payload)

	report, err := FormatReport(payload)
	if err != nil {
		return GetWeatherResponse{}, err
	}

	return GetWeatherResponse{Weather: report}, nil
}

// classify makes sure provider errors carry a kind. Unclassified failures are
// treated as the upstream being unavailable.
func classify(err error, op string) error {
	if KindOf(err) != KindUnknown {
		return err
	}
	return NewError(KindUpstreamUnavailable, op, err)
}
