package mcpapi

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-mcp/internal/store"
	"github.com/i474232898/weather-mcp/internal/weather"
)

type fakeQuerier struct {
	mu    sync.Mutex
	calls []weather.GetWeatherRequest
	resp  weather.GetWeatherResponse
	err   error
}

func (f *fakeQuerier) GetCurrentWeather(_ context.Context, req weather.GetWeatherRequest) (weather.GetWeatherResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

type memRecorder struct {
	mu   sync.Mutex
	invs []store.Invocation
}

func (r *memRecorder) Save(inv store.Invocation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invs = append(r.invs, inv)
}

func connect(t *testing.T, tool *Tool) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer("test", tool)
	require.NoError(t, err)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, args map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()
	return cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: args,
	})
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

// rpcError asserts that a call failed with a JSON-RPC error response, not a
// successful result, and returns that error.
func rpcError(t *testing.T, res *mcp.CallToolResult, err error) *jsonrpc.Error {
	t.Helper()
	require.Nil(t, res, "expected no result for a failed call")
	require.Error(t, err)
	var wire *jsonrpc.Error
	require.ErrorAs(t, err, &wire)
	return wire
}

func TestToolReturnsWeatherPayload(t *testing.T) {
	q := &fakeQuerier{resp: weather.GetWeatherResponse{Weather: "Weather Condition: Clear."}}
	rec := &memRecorder{}
	cs := connect(t, NewTool(q, Options{Recorder: rec}))

	res, err := callTool(t, cs, map[string]any{"location": "Tokyo"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out weather.GetWeatherResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "Weather Condition: Clear.", out.Weather)

	require.Len(t, q.calls, 1)
	assert.Equal(t, "Tokyo", q.calls[0].Location)
	assert.Equal(t, weather.TemperatureUnit(""), q.calls[0].Unit)

	require.Len(t, rec.invs, 1)
	assert.Equal(t, "ok", rec.invs[0].Outcome)
	assert.Equal(t, "celsius", rec.invs[0].Unit)
	assert.NotEmpty(t, rec.invs[0].ID)
}

func TestToolPassesUnit(t *testing.T) {
	q := &fakeQuerier{resp: weather.GetWeatherResponse{Weather: "report"}}
	cs := connect(t, NewTool(q, Options{}))

	_, err := callTool(t, cs, map[string]any{"location": "Oslo", "unit": "fahrenheit"})
	require.NoError(t, err)
	require.Len(t, q.calls, 1)
	assert.Equal(t, weather.UnitFahrenheit, q.calls[0].Unit)
}

func TestToolRejectsUnknownUnit(t *testing.T) {
	q := &fakeQuerier{}
	cs := connect(t, NewTool(q, Options{}))

	res, err := callTool(t, cs, map[string]any{"location": "Oslo", "unit": "kelvin"})
	wire := rpcError(t, res, err)
	assert.EqualValues(t, jsonrpc.CodeInvalidParams, wire.Code)
	assert.Empty(t, q.calls)
}

func TestToolRejectsEmptyLocation(t *testing.T) {
	q := &fakeQuerier{}
	rec := &memRecorder{}
	cs := connect(t, NewTool(q, Options{Recorder: rec}))

	res, err := callTool(t, cs, map[string]any{"location": ""})
	wire := rpcError(t, res, err)
	assert.EqualValues(t, jsonrpc.CodeInvalidParams, wire.Code)
	assert.Equal(t, "location must not be empty", wire.Message)
	assert.Empty(t, q.calls)

	require.Len(t, rec.invs, 1)
	assert.Equal(t, "invalid_params", rec.invs[0].Outcome)
}

func TestToolErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int64
		outcome  string
	}{
		{
			name:     "missing api key",
			err:      weather.NewError(weather.KindConfiguration, "get current weather", weather.ErrMissingAPIKey),
			wantCode: jsonrpc.CodeInvalidParams,
			outcome:  "configuration",
		},
		{
			name:     "upstream unavailable",
			err:      weather.Errorf(weather.KindUpstreamUnavailable, "get geocode", "connection refused"),
			wantCode: jsonrpc.CodeInternalError,
			outcome:  "upstream_unavailable",
		},
		{
			name:     "upstream protocol",
			err:      weather.Errorf(weather.KindUpstreamProtocol, "parse weather response", "missing main"),
			wantCode: jsonrpc.CodeInternalError,
			outcome:  "upstream_protocol",
		},
		{
			name:     "formatting",
			err:      weather.NewError(weather.KindFormatting, "format report", weather.ErrNoConditions),
			wantCode: jsonrpc.CodeInternalError,
			outcome:  "formatting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			cs := connect(t, NewTool(&fakeQuerier{err: tt.err}, Options{Recorder: rec}))

			res, err := callTool(t, cs, map[string]any{"location": "Paris"})
			wire := rpcError(t, res, err)
			assert.Equal(t, tt.wantCode, wire.Code)
			assert.Equal(t, tt.err.Error(), wire.Message)

			require.Len(t, rec.invs, 1)
			assert.Equal(t, tt.outcome, rec.invs[0].Outcome)
		})
	}
}

func TestToolRedactsSecrets(t *testing.T) {
	q := &fakeQuerier{
		err: weather.Errorf(weather.KindUpstreamUnavailable, "get geocode", `Get "http://geo?appid=k3y": timeout`),
	}
	cs := connect(t, NewTool(q, Options{Secrets: []string{"k3y"}}))

	res, err := callTool(t, cs, map[string]any{"location": "Paris"})
	wire := rpcError(t, res, err)
	assert.False(t, strings.Contains(wire.Message, "k3y"), "secret leaked: %s", wire.Message)
	assert.Contains(t, wire.Message, "[REDACTED]")
}

func TestToolListedWithUnitEnum(t *testing.T) {
	cs := connect(t, NewTool(&fakeQuerier{}, Options{}))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)

	tool := res.Tools[0]
	assert.Equal(t, ToolName, tool.Name)
	assert.Equal(t, ToolDescription, tool.Description)

	schema, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)
	assert.Contains(t, string(schema), `"enum":["celsius","fahrenheit"]`)
	assert.Contains(t, string(schema), `"required":["location"]`)
}

func TestToolMissingKeyIsProtocolError(t *testing.T) {
	svc := weather.NewService("", nil, nil)
	rec := &memRecorder{}
	cs := connect(t, NewTool(svc, Options{Recorder: rec}))

	res, err := callTool(t, cs, map[string]any{"location": "Tokyo"})
	wire := rpcError(t, res, err)
	assert.EqualValues(t, jsonrpc.CodeInvalidParams, wire.Code)
	assert.Contains(t, wire.Message, "OPENWEATHERMAP_API_KEY")

	require.Len(t, rec.invs, 1)
	assert.Equal(t, "configuration", rec.invs[0].Outcome)
}

func TestInputSchemaRequiresLocationOnly(t *testing.T) {
	s, err := InputSchema()
	require.NoError(t, err)
	assert.Equal(t, []string{"location"}, s.Required)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, s.Properties["unit"].Enum)
}
