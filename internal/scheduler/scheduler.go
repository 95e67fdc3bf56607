package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-mcp/internal/weather"
)

const probeTimeout = 30 * time.Second

// Querier runs one weather query.
type Querier interface {
	GetCurrentWeather(ctx context.Context, req weather.GetWeatherRequest) (weather.GetWeatherResponse, error)
}

// ProbeStatus is the outcome of the most recent upstream probe.
type ProbeStatus struct {
	Enabled  bool      `json:"enabled"`
	Location string    `json:"location,omitempty"`
	LastRun  time.Time `json:"lastRun,omitempty"`
	OK       bool      `json:"ok"`
	Kind     string    `json:"kind,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Scheduler periodically runs a weather query for a fixed probe location so
// that upstream health can be reported without waiting for a tool call.
type Scheduler struct {
	scheduler *gocron.Scheduler
	querier   Querier
	location  string
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.RWMutex
	status ProbeStatus
}

// New creates a new Scheduler. The probe is disabled when location is empty
// or interval is not positive.
func New(location string, interval time.Duration, querier Querier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		querier:   querier,
		location:  location,
		interval:  interval,
		logger:    logger,
		status: ProbeStatus{
			Enabled:  location != "" && interval > 0,
			Location: location,
		},
	}
}

// Start schedules the probe job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if !s.status.Enabled {
		s.logger.Info("scheduler: upstream probe disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: upstream probe started", "location", s.location, "interval", s.interval)
	return nil
}

// RunOnce probes the upstream and records the result.
func (s *Scheduler) RunOnce(ctx context.Context) ProbeStatus {
	_, err := s.querier.GetCurrentWeather(ctx, weather.GetWeatherRequest{Location: s.location})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastRun = time.Now().UTC()
	s.status.OK = err == nil
	s.status.Kind = ""
	s.status.Error = ""
	if err != nil {
		s.status.Kind = weather.KindOf(err).String()
		s.status.Error = err.Error()
		s.logger.Warn("scheduler: upstream probe failed", "location", s.location, "kind", s.status.Kind, "error", err)
	} else {
		s.logger.Debug("scheduler: upstream probe succeeded", "location", s.location)
	}
	return s.status
}

// Status returns the last recorded probe status.
func (s *Scheduler) Status() ProbeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
