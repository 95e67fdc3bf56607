package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-mcp/internal/weather"
)

const (
	DefaultGeocodeURL = "http://api.openweathermap.org/geo/1.0/direct"
	DefaultWeatherURL = "http://api.openweathermap.org/data/2.5/weather"
)

// OpenWeatherOptions configures an OpenWeatherProvider. Zero values fall
// back to the public endpoints and no rate limit.
type OpenWeatherOptions struct {
	GeocodeURL string
	WeatherURL string
	RateLimit  float64 // requests per second, 0 = unlimited
	Burst      int
	Breaker    BreakerConfig
}

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name       string
	geocodeURL string
	weatherURL string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, opts OpenWeatherOptions) *OpenWeatherProvider {
	if opts.GeocodeURL == "" {
		opts.GeocodeURL = DefaultGeocodeURL
	}
	if opts.WeatherURL == "" {
		opts.WeatherURL = DefaultWeatherURL
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &OpenWeatherProvider{
		name:       "openweathermap",
		geocodeURL: opts.GeocodeURL,
		weatherURL: opts.WeatherURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Limiter: limiter,
		},
		circuit: newCircuitBreaker("openweathermap", opts.Breaker),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (p *OpenWeatherProvider) BreakerState() string {
	return p.circuit.State().String()
}

// Geocode resolves a free-text location to the coordinates of the first match.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, q weather.GeocodeQuery) (weather.GeocodeResult, error) {
	const op = "get geocode"

	values := url.Values{}
	values.Set("q", q.Location)
	values.Set("appid", q.APIKey)
	values.Set("limit", "1")
	values.Set("units", q.Units)

	resp, err := p.get(ctx, op, p.geocodeURL, values)
	if err != nil {
		return weather.GeocodeResult{}, err
	}
	return weather.DecodeGeocode(q.Location, resp.Body)
}

// CurrentWeather fetches and strictly validates the current weather at the
// given coordinates.
func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context, q weather.WeatherQuery) (weather.NormalizedWeather, error) {
	const op = "get weather"

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(q.Coordinates.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(q.Coordinates.Longitude, 'f', -1, 64))
	values.Set("appid", q.APIKey)
	values.Set("units", q.Units)

	resp, err := p.get(ctx, op, p.weatherURL, values)
	if err != nil {
		return weather.NormalizedWeather{}, err
	}
	return weather.DecodeWeather(resp.Body)
}

func (p *OpenWeatherProvider) get(ctx context.Context, op, base string, values url.Values) (upstreamResponse, error) {
	u := fmt.Sprintf("%s?%s", base, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return upstreamResponse{}, weather.Errorf(weather.KindUpstreamUnavailable, op, "build request: %v", err)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, op, req)
	if err != nil {
		return upstreamResponse{}, err
	}
	if err := checkStatus(op, resp); err != nil {
		return upstreamResponse{}, err
	}
	return resp, nil
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)
