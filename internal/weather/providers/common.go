package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-mcp/internal/weather"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// BreakerConfig controls the circuit breaker around a provider.
type BreakerConfig struct {
	MaxRequests         uint32        // requests allowed while half-open
	Interval            time.Duration // closed-state counter reset period (0 = never)
	Timeout             time.Duration // open-state duration before half-open
	ConsecutiveFailures uint32        // failures that trip the breaker (0 = gobreaker default)
}

// HTTPClientConfig bundles the HTTP client and the outbound rate limiter.
type HTTPClientConfig struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	// errCallerGone marks requests abandoned by the caller; the breaker does
	// not count them as upstream failures.
	errCallerGone = errors.New("request abandoned by caller")
)

// upstreamResponse is a fully read provider response.
type upstreamResponse struct {
	StatusCode int
	Body       []byte
}

func newCircuitBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
	}
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errCallerGone)
	}
	if cfg.ConsecutiveFailures > 0 {
		threshold := cfg.ConsecutiveFailures
		settings.ReadyToTrip = func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		}
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// doRequest executes req exactly once behind the rate limiter and the circuit
// breaker. Transport failures, 429 and 5xx are KindUpstreamUnavailable; any
// other status is returned to the caller together with the body.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	op string,
	req *http.Request,
) (upstreamResponse, error) {
	if cfg.Client == nil {
		return upstreamResponse{}, weather.NewError(weather.KindUpstreamUnavailable, op, errNoHTTPClient)
	}

	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return upstreamResponse{}, weather.Errorf(weather.KindUpstreamUnavailable, op, "rate limit wait canceled: %w", err)
		}
	}

	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", errCallerGone, ctxErr)
			}
			return nil, stripQuery(execErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}

		return upstreamResponse{StatusCode: resp.StatusCode, Body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return upstreamResponse{}, weather.Errorf(weather.KindUpstreamUnavailable, op, "%w: %v", errCircuitOpen, err)
		}
		return upstreamResponse{}, weather.NewError(weather.KindUpstreamUnavailable, op, err)
	}

	resp, ok := result.(upstreamResponse)
	if !ok {
		return upstreamResponse{}, weather.Errorf(weather.KindUpstreamUnavailable, op, "unexpected result type from circuit breaker")
	}
	return resp, nil
}

// checkStatus turns a non-2xx answer into a KindUpstreamProtocol error,
// quoting the provider's message when it sent one.
func checkStatus(op string, resp upstreamResponse) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	if jsonErr := json.Unmarshal(resp.Body, &apiErr); jsonErr == nil && apiErr.Message != "" {
		return weather.Errorf(weather.KindUpstreamProtocol, op, "status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return weather.Errorf(weather.KindUpstreamProtocol, op, "unexpected status code %d", resp.StatusCode)
}

// stripQuery drops the query string (it carries the API key) from URL errors.
func stripQuery(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			urlErr.URL = u.String()
		}
	}
	return err
}
