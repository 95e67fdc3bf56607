package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-mcp/internal/api/http"
	mcpapi "github.com/i474232898/weather-mcp/internal/api/mcp"
	"github.com/i474232898/weather-mcp/internal/config"
	"github.com/i474232898/weather-mcp/internal/scheduler"
	"github.com/i474232898/weather-mcp/internal/store"
	"github.com/i474232898/weather-mcp/internal/weather"
	"github.com/i474232898/weather-mcp/internal/weather/providers"
)

var version = "dev"

func main() {
	var socketAddr, configPath string
	flag.StringVar(&socketAddr, "s", "", "address to listen on (host:port)")
	flag.StringVar(&socketAddr, "socket-addr", "", "address to listen on (host:port)")
	flag.StringVar(&configPath, "config", "", "optional YAML configuration file")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if socketAddr != "" {
		cfg.SocketAddr = socketAddr
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHERMAP_API_KEY is not set, every weather query will fail")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherOptions{
		GeocodeURL: cfg.GeocodeURL,
		WeatherURL: cfg.WeatherURL,
		RateLimit:  cfg.RateLimitRPS,
		Burst:      cfg.RateLimitBurst,
		Breaker: providers.BreakerConfig{
			MaxRequests:         cfg.BreakerMaxRequests,
			Interval:            cfg.BreakerInterval,
			Timeout:             cfg.BreakerTimeout,
			ConsecutiveFailures: cfg.BreakerConsecutiveFailures,
		},
	})

	service := weather.NewService(cfg.OpenWeatherAPIKey, provider, log)

	// In-memory invocation history with configured retention.
	history := store.NewMemoryStore(cfg.HistoryMaxEntries, cfg.HistoryMaxAge)

	tool := mcpapi.NewTool(service, mcpapi.Options{
		Recorder: history,
		Logger:   log,
		Secrets:  []string{cfg.OpenWeatherAPIKey},
	})
	mcpServer, err := mcpapi.NewServer(version, tool)
	if err != nil {
		log.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	// Optional upstream probe.
	sched := scheduler.New(cfg.ProbeLocation, cfg.ProbeInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               mcpapi.ServerName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	deps := httpapi.Dependencies{
		Service: mcpapi.ServerName,
		History: history,
		MCP:     mcpapi.NewHandler(mcpServer),
		MCPPath: cfg.MCPPath,
		Breaker: provider,
	}
	if sched.Status().Enabled {
		deps.Probe = sched
	}
	httpapi.RegisterRoutes(app, deps)

	go func() {
		log.Info("listening", "addr", cfg.SocketAddr, "mcp_path", cfg.MCPPath)
		if err := app.Listen(cfg.SocketAddr); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
