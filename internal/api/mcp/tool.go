// Package mcpapi exposes the weather service as an MCP tool.
package mcpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/i474232898/weather-mcp/internal/common"
	"github.com/i474232898/weather-mcp/internal/store"
	"github.com/i474232898/weather-mcp/internal/weather"
)

const (
	ToolName        = "get_current_weather"
	ToolDescription = "Get the weather for a given city"

	ServerName         = "weather-mcp"
	ServerInstructions = "A MCP server that can get the weather for a given city"
)

var validate = validator.New()

// Querier is the orchestrator as seen by the tool.
type Querier interface {
	GetCurrentWeather(ctx context.Context, req weather.GetWeatherRequest) (weather.GetWeatherResponse, error)
}

// Recorder receives one record per tool invocation.
type Recorder interface {
	Save(inv store.Invocation)
}

// failure is a rejected call: the JSON-RPC error sent to the client and the
// outcome recorded for it.
type failure struct {
	rpc     *jsonrpc.Error
	outcome string
}

func invalidParams(msg string) *failure {
	return &failure{
		rpc:     &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: msg},
		outcome: "invalid_params",
	}
}

// Options configures a Tool. All fields are optional.
type Options struct {
	Recorder Recorder
	Logger   *slog.Logger
	// Secrets are scrubbed from every error message sent to clients.
	Secrets []string
}

// Tool adapts a Querier to the get_current_weather MCP tool.
type Tool struct {
	querier  Querier
	recorder Recorder
	logger   *slog.Logger
	secrets  []string
	now      func() time.Time
}

func NewTool(q Querier, opts Options) *Tool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		querier:  q,
		recorder: opts.Recorder,
		logger:   logger,
		secrets:  opts.Secrets,
		now:      time.Now,
	}
}

// InputSchema is the schema inferred from weather.GetWeatherRequest with the
// unit restricted to its two accepted values.
func InputSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[weather.GetWeatherRequest](nil)
	if err != nil {
		return nil, err
	}
	unit, ok := s.Properties["unit"]
	if !ok {
		return nil, fmt.Errorf("input schema has no unit property")
	}
	unit.Enum = []any{string(weather.UnitCelsius), string(weather.UnitFahrenheit)}
	return s, nil
}

// Register adds the tool to server.
func (t *Tool) Register(server *mcp.Server) error {
	schema, err := InputSchema()
	if err != nil {
		return fmt.Errorf("build input schema: %w", err)
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: ToolDescription,
		InputSchema: schema,
	}, t.handle)
	return nil
}

func (t *Tool) handle(ctx context.Context, _ *mcp.CallToolRequest, in weather.GetWeatherRequest) (*mcp.CallToolResult, weather.GetWeatherResponse, error) {
	started := t.now()
	inv := store.Invocation{
		ID:        uuid.NewString(),
		Tool:      ToolName,
		Location:  in.Location,
		Unit:      string(in.Unit.OrDefault()),
		StartedAt: started.UTC(),
	}

	out, fail := t.call(ctx, in)

	inv.DurationMs = t.now().Sub(started).Milliseconds()
	if fail != nil {
		inv.Outcome = fail.outcome
		inv.Error = fail.rpc.Message
		t.logger.Error("tool call failed", "id", inv.ID, "location", in.Location, "code", fail.rpc.Code, "error", fail.rpc.Message)
	} else {
		inv.Outcome = "ok"
		t.logger.Info("tool call succeeded", "id", inv.ID, "location", in.Location, "duration_ms", inv.DurationMs)
	}
	if t.recorder != nil {
		t.recorder.Save(inv)
	}

	if fail != nil {
		return nil, weather.GetWeatherResponse{}, fail.rpc
	}
	return nil, out, nil
}

func (t *Tool) call(ctx context.Context, in weather.GetWeatherRequest) (weather.GetWeatherResponse, *failure) {
	if err := validate.Struct(in); err != nil {
		return weather.GetWeatherResponse{}, invalidParams("location must not be empty")
	}

	out, err := t.querier.GetCurrentWeather(ctx, in)
	if err != nil {
		kind := weather.KindOf(err)
		return weather.GetWeatherResponse{}, &failure{
			rpc: &jsonrpc.Error{
				Code:    codeFor(kind),
				Message: common.Redact(err.Error(), t.secrets...),
			},
			outcome: kind.String(),
		}
	}
	return out, nil
}

// codeFor maps an error kind onto a JSON-RPC error code. Only a missing API
// key is reported as invalid params.
func codeFor(kind weather.ErrorKind) int64 {
	if kind == weather.KindConfiguration {
		return jsonrpc.CodeInvalidParams
	}
	return jsonrpc.CodeInternalError
}

// NewServer creates an MCP server with the weather tool registered.
func NewServer(version string, tool *Tool) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: ServerInstructions,
	})
	if err := tool.Register(server); err != nil {
		return nil, err
	}
	return server, nil
}

// NewHandler serves server over the streamable HTTP transport.
func NewHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
