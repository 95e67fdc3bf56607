package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-mcp/internal/scheduler"
	"github.com/i474232898/weather-mcp/internal/store"
)

var validate = validator.New()

const defaultRecentLimit = 50

// History is the read side of the invocation store.
type History interface {
	Recent(limit int) []store.Invocation
	Range(from, to time.Time) ([]store.Invocation, error)
}

// Dependencies are the collaborators served by the HTTP surface.
// Breaker and Probe may be nil.
type Dependencies struct {
	Service string
	History History
	MCP     http.Handler
	MCPPath string
	Breaker interface{ BreakerState() string }
	Probe   interface{ Status() scheduler.ProbeStatus }
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "ok",
			"service": deps.Service,
		}
		if deps.Breaker != nil {
			body["breaker"] = deps.Breaker.BreakerState()
		}
		if deps.Probe != nil {
			body["probe"] = deps.Probe.Status()
		}
		return c.JSON(body)
	})

	if deps.MCP != nil {
		path := deps.MCPPath
		if path == "" {
			path = "/mcp"
		}
		// The adaptor buffers responses and never sees client disconnects, so
		// the standalone SSE stream is refused and clients fall back to
		// request/response over POST.
		app.Get(path, func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderAllow, "POST, DELETE")
			return fiber.NewError(fiber.StatusMethodNotAllowed, "standalone SSE stream is not supported")
		})
		app.All(path, adaptor.HTTPHandler(deps.MCP))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/invocations", func(c *fiber.Ctx) error {
		q := recentQuery{Limit: defaultRecentLimit}
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
			}
			q.Limit = n
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"invocations": deps.History.Recent(q.Limit),
		})
	})

	v1.Get("/invocations/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		invs, err := deps.History.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no invocations for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read invocation history")
		}

		return c.JSON(fiber.Map{
			"from":        req.From,
			"to":          req.To,
			"invocations": invs,
		})
	})
}

// recentQuery holds query parameters for the recent invocations endpoint.
type recentQuery struct {
	Limit int `validate:"gte=1,lte=500"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
