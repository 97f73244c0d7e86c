package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

const (
	testSlug       = "acme/web-scraper"
	testCredential = "svc-0123456789abcdef0123456789abcdef"
)

type fakeRouter struct {
	mu       sync.Mutex
	requests []api.Request
	resp     *api.Response
}

func (f *fakeRouter) Execute(_ context.Context, req api.Request) *api.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.resp != nil {
		return f.resp
	}
	return &api.Response{
		Success: true,
		Event:   req.Event,
		Cost:    0.01,
		Data:    map[string]interface{}{"ok": true},
	}
}

func (f *fakeRouter) captured() []api.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Request(nil), f.requests...)
}

func newTestGateway(t *testing.T) (*Server, *fakeRouter) {
	t.Helper()
	api.ResetForTest()
	t.Cleanup(api.ResetForTest)

	router := &fakeRouter{}
	api.RegisterRouter(router)

	return NewServer(config.GatewayConfig{Host: "localhost", Port: 8090, ToolPrefix: "oc"}), router
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Arguments: args,
		},
	}
}

func toolByName(t *testing.T, tools []mcpserver.ServerTool, name string) mcpserver.ServerTool {
	t.Helper()
	for _, tool := range tools {
		if tool.Tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return mcpserver.ServerTool{}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestBuildToolsExposesFourOperations(t *testing.T) {
	s, _ := newTestGateway(t)

	tools := s.buildTools()
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"oc_search_plugins",
		"oc_get_plugin_config",
		"oc_validate_plugin",
		"oc_deploy_plugin",
	}, names)

	search := toolByName(t, tools, "oc_search_plugins")
	assert.Equal(t, []string{argQuery}, search.Tool.InputSchema.Required)

	deploy := toolByName(t, tools, "oc_deploy_plugin")
	assert.ElementsMatch(t, []string{argSlug, argCredential}, deploy.Tool.InputSchema.Required)
	assert.Contains(t, deploy.Tool.Description, "never logged")
}

func TestToolNamesWithoutPrefix(t *testing.T) {
	s := NewServer(config.GatewayConfig{})

	assert.Equal(t, "search_plugins", s.toolName(toolSearch))
	assert.Equal(t, "deploy_plugin", s.toolName(toolDeploy))
}

func TestRequestFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		event    api.Event
		args     map[string]interface{}
		want     *api.Request
		wantKind api.ErrorKind
	}{
		{
			name:  "search with filters and key",
			event: api.EventSearch,
			args: map[string]interface{}{
				argQuery:          "scraper",
				argFilters:        map[string]interface{}{"category": "scraping"},
				argIdempotencyKey: "k1",
			},
			want: &api.Request{
				Event:          api.EventSearch,
				Query:          "scraper",
				Filters:        map[string]string{"category": "scraping"},
				IdempotencyKey: "k1",
			},
		},
		{
			name:     "search without query",
			event:    api.EventSearch,
			args:     map[string]interface{}{},
			wantKind: api.ErrorKindInput,
		},
		{
			name:     "search with non-object filters",
			event:    api.EventSearch,
			args:     map[string]interface{}{argQuery: "x", argFilters: "web"},
			wantKind: api.ErrorKindInput,
		},
		{
			name:     "search with non-string filter value",
			event:    api.EventSearch,
			args:     map[string]interface{}{argQuery: "x", argFilters: map[string]interface{}{"n": float64(3)}},
			wantKind: api.ErrorKindInput,
		},
		{
			name:  "config with slug",
			event: api.EventConfig,
			args:  map[string]interface{}{argSlug: testSlug},
			want:  &api.Request{Event: api.EventConfig, Slug: testSlug},
		},
		{
			name:     "validate without slug",
			event:    api.EventValidate,
			args:     map[string]interface{}{},
			wantKind: api.ErrorKindInput,
		},
		{
			name:  "deploy with credential",
			event: api.EventDeploy,
			args:  map[string]interface{}{argSlug: testSlug, argCredential: testCredential},
			want:  &api.Request{Event: api.EventDeploy, Slug: testSlug, Credential: testCredential},
		},
		{
			name:     "deploy without credential",
			event:    api.EventDeploy,
			args:     map[string]interface{}{argSlug: testSlug},
			wantKind: api.ErrorKindCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, opErr := requestFromArgs(tt.event, tt.args)
			if tt.wantKind != "" {
				require.NotNil(t, opErr)
				assert.Equal(t, tt.wantKind, opErr.Kind)
				return
			}
			require.Nil(t, opErr)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestSearchToolDispatchesThroughRouter(t *testing.T) {
	s, router := newTestGateway(t)
	tool := toolByName(t, s.buildTools(), "oc_search_plugins")

	result, err := tool.Handler(context.Background(), callRequest(map[string]interface{}{
		argQuery:   "scraper",
		argFilters: map[string]interface{}{"category": "scraping"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &envelope))
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "search", envelope["event"])

	requests := router.captured()
	require.Len(t, requests, 1)
	assert.Equal(t, api.EventSearch, requests[0].Event)
	assert.Equal(t, "scraper", requests[0].Query)
	assert.Equal(t, map[string]string{"category": "scraping"}, requests[0].Filters)
}

func TestEnvelopeFailureIsMarkedError(t *testing.T) {
	s, router := newTestGateway(t)
	router.resp = &api.Response{
		Success: false,
		Event:   api.EventValidate,
		Error:   &api.ResponseError{Message: "plugin \"acme/gone\" is not in the registry", Kind: api.ErrorKindNotFound},
	}
	tool := toolByName(t, s.buildTools(), "oc_validate_plugin")

	result, err := tool.Handler(context.Background(), callRequest(map[string]interface{}{argSlug: "acme/gone"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &envelope))
	assert.Equal(t, false, envelope["success"])
	require.NotNil(t, envelope["error"])
}

func TestDeployToolResultOmitsCredential(t *testing.T) {
	s, router := newTestGateway(t)
	router.resp = &api.Response{
		Success: false,
		Event:   api.EventDeploy,
		Cost:    0.5,
		Error:   &api.ResponseError{Message: "hosting platform reported a failed build", Kind: api.ErrorKindDeploymentFailed},
	}
	tool := toolByName(t, s.buildTools(), "oc_deploy_plugin")

	result, err := tool.Handler(context.Background(), callRequest(map[string]interface{}{
		argSlug:       testSlug,
		argCredential: testCredential,
	}))
	require.NoError(t, err)

	assert.NotContains(t, resultText(t, result), testCredential)

	requests := router.captured()
	require.Len(t, requests, 1)
	assert.Equal(t, testCredential, requests[0].Credential, "the router must receive the credential intact")
}

func TestMissingArgumentNeverReachesRouter(t *testing.T) {
	s, router := newTestGateway(t)
	tool := toolByName(t, s.buildTools(), "oc_deploy_plugin")

	result, err := tool.Handler(context.Background(), callRequest(map[string]interface{}{argSlug: testSlug}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Equal(t, "credential is required", resultText(t, result))
	assert.Empty(t, router.captured())
}

func TestToolWithoutRouterReturnsError(t *testing.T) {
	s, _ := newTestGateway(t)
	api.RegisterRouter(nil)
	tool := toolByName(t, s.buildTools(), "oc_get_plugin_config")

	result, err := tool.Handler(context.Background(), callRequest(map[string]interface{}{argSlug: testSlug}))
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "router not available")
}

func TestRedactArgsMasksCredentialOnly(t *testing.T) {
	args := map[string]interface{}{
		argSlug:       testSlug,
		argCredential: testCredential,
	}

	redacted := redactArgs(args)

	assert.Equal(t, "[redacted]", redacted[argCredential])
	assert.Equal(t, testSlug, redacted[argSlug])
	assert.Equal(t, testCredential, args[argCredential], "the original map stays untouched")
}
