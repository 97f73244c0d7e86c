package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/app"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// The tests in this package boot the complete application (memory backends,
// fake registry and hosting platforms) and drive the four operations through
// the running gateway transport with the same client the CLI uses. Because
// component handlers register into a process-global locator, harnesses must
// run one at a time; none of these tests may call t.Parallel.

// envelope mirrors the gateway response for assertions. Data stays raw so
// each test decodes only the payload type it expects.
type envelope struct {
	Success bool            `json:"success"`
	Event   string          `json:"event"`
	Cost    float64         `json:"cost"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		ExecutionTimeMs int64 `json:"executionTimeMs"`
		Cached          bool  `json:"cached"`
	} `json:"meta"`
	Error *struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
}

// syncBuffer collects daemon logs from concurrent gateway goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeRegistry stands in for the plugin registry API. It serves descriptors
// and summaries seeded by the harness, stores published validation verdicts,
// and answers source probes on /probe/ paths.
type fakeRegistry struct {
	srv *httptest.Server

	mu          sync.Mutex
	descriptors map[string]api.PluginDescriptor
	summaries   []api.PluginSummary
	categories  map[string]string
	validations map[string]*api.ValidationResult
	searchCalls int
}

func newFakeRegistry() *fakeRegistry {
	f := &fakeRegistry{
		descriptors: map[string]api.PluginDescriptor{},
		categories:  map[string]string{},
		validations: map[string]*api.ValidationResult{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/plugins", f.handleList)
	mux.HandleFunc("/v1/plugins/", f.handleItem)
	mux.HandleFunc("/probe/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeRegistry) addPlugin(descriptor api.PluginDescriptor, summary api.PluginSummary, category string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.descriptors[descriptor.Slug] = descriptor
	f.summaries = append(f.summaries, summary)
	f.categories[descriptor.Slug] = category
}

func (f *fakeRegistry) setValidation(result *api.ValidationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validations[result.Slug] = result
}

func (f *fakeRegistry) validation(slug string) *api.ValidationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validations[slug]
}

func (f *fakeRegistry) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakeRegistry) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++

	query := strings.ToLower(r.URL.Query().Get("q"))
	category := r.URL.Query().Get("category")

	matched := []api.PluginSummary{}
	for _, summary := range f.summaries {
		haystack := strings.ToLower(summary.Slug + " " + summary.DisplayName)
		if query != "" && !strings.Contains(haystack, query) {
			continue
		}
		if category != "" && f.categories[summary.Slug] != category {
			continue
		}
		matched = append(matched, summary)
	}
	writeJSON(w, map[string]interface{}{"plugins": matched})
}

func (f *fakeRegistry) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plugins/")

	if slug, ok := strings.CutSuffix(rest, "/validation"); ok {
		switch r.Method {
		case http.MethodPut:
			var result api.ValidationResult
			if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
				http.Error(w, "bad verdict", http.StatusBadRequest)
				return
			}
			f.setValidation(&result)
			w.WriteHeader(http.StatusNoContent)
		default:
			if result := f.validation(slug); result != nil {
				writeJSON(w, result)
				return
			}
			http.NotFound(w, r)
		}
		return
	}

	f.mu.Lock()
	descriptor, ok := f.descriptors[rest]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, descriptor)
}

// fakeHosting stands in for the managed hosting platform. Instance ids are
// stable per name, and build outcomes follow the failBuilds switch at the
// moment the build is triggered.
type fakeHosting struct {
	srv         *httptest.Server
	endpointURL string

	mu              sync.Mutex
	instances       map[string]string
	builds          map[string]string
	failBuilds      bool
	instanceCreates int
}

func newFakeHosting() *fakeHosting {
	f := &fakeHosting{
		endpointURL: "https://instances.oc-hosting.test/github-mcp",
		instances:   map[string]string{},
		builds:      map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/instances", f.handleCreate)
	mux.HandleFunc("/v1/instances/", f.handleInstance)
	mux.HandleFunc("/v1/builds/", f.handleBuild)
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeHosting) setFailBuilds(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failBuilds = fail
}

func (f *fakeHosting) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instanceCreates
}

func (f *fakeHosting) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name       string `json:"name"`
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Credential == "" {
		http.Error(w, "name and credential required", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.instanceCreates++
	id, ok := f.instances[req.Name]
	if !ok {
		id = fmt.Sprintf("inst-%d", len(f.instances)+1)
		f.instances[req.Name] = id
	}
	writeJSON(w, map[string]string{"instanceId": id})
}

func (f *fakeHosting) handleInstance(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/instances/")

	if strings.HasSuffix(rest, "/builds") && r.Method == http.MethodPost {
		f.mu.Lock()
		defer f.mu.Unlock()
		buildID := fmt.Sprintf("build-%d", len(f.builds)+1)
		state := "succeeded"
		if f.failBuilds {
			state = "failed"
		}
		f.builds[buildID] = state
		writeJSON(w, map[string]string{"buildId": buildID})
		return
	}

	if strings.HasSuffix(rest, "/endpoint") && r.Method == http.MethodGet {
		writeJSON(w, map[string]string{"url": f.endpointURL})
		return
	}

	http.NotFound(w, r)
}

func (f *fakeHosting) handleBuild(w http.ResponseWriter, r *http.Request) {
	buildID := strings.TrimPrefix(r.URL.Path, "/v1/builds/")
	f.mu.Lock()
	state, ok := f.builds[buildID]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	resp := map[string]string{"state": state}
	if state == "failed" {
		resp["detail"] = "image build exited with status 1"
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// harness is one booted application with its fake remote platforms and a
// capture of everything the daemon logged after startup.
type harness struct {
	endpoint string
	registry *fakeRegistry
	hosting  *fakeHosting
	logs     *syncBuffer
}

type harnessOptions struct {
	deployPerHour int
}

func startHarness(t *testing.T) *harness {
	return startHarnessWith(t, harnessOptions{})
}

func startHarnessWith(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	// Ambient environment must not rewire the fakes out from under the test.
	for _, name := range []string{
		config.EnvPostgresDSN,
		config.EnvRedisAddr,
		config.EnvRedisPassword,
		config.EnvRegistryURL,
		config.EnvHostingURL,
	} {
		t.Setenv(name, "")
	}

	reg := newFakeRegistry()
	t.Cleanup(reg.srv.Close)
	hosting := newFakeHosting()
	t.Cleanup(hosting.srv.Close)
	seedPlugins(reg)

	if opts.deployPerHour == 0 {
		opts.deployPerHour = 100
	}
	port := freePort(t)

	configDir := t.TempDir()
	configYAML := fmt.Sprintf(`gateway:
  host: 127.0.0.1
  port: %d
  transport: streamable-http
registry:
  baseURL: %s
  timeoutSeconds: 5
hosting:
  baseURL: %s
  timeoutSeconds: 5
cache:
  backend: memory
ledger:
  backend: memory
rateLimit:
  backend: memory
  deployPerHour: %d
deployer:
  pollIntervalSeconds: 1
  budgetSeconds: 10
metrics:
  enabled: false
`, port, reg.srv.URL, hosting.srv.URL, opts.deployPerHour)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configYAML), 0o644))

	application, err := app.NewApplication(app.NewConfig(false, true, configDir))
	require.NoError(t, err)

	// Re-point the daemon logger at a buffer so tests can assert over
	// everything logged from here on, the deploy paths in particular.
	logs := &syncBuffer{}
	logging.InitForDaemon(logging.LevelDebug, logs)
	t.Cleanup(func() {
		logging.InitForDaemon(logging.LevelInfo, os.Stderr)
	})

	ctx, cancel := context.WithCancel(context.Background())
	services := application.Services()
	require.NoError(t, services.Gateway.Start(ctx))
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = services.Gateway.Stop(stopCtx)
		cancel()
		application.Close()
	})

	waitForListener(t, fmt.Sprintf("127.0.0.1:%d", port))

	return &harness{
		endpoint: services.Gateway.GetEndpoint(),
		registry: reg,
		hosting:  hosting,
		logs:     logs,
	}
}

// seedPlugins installs the fixture world: one verified plugin ready to
// deploy, one whose source never answers, and one never validated.
func seedPlugins(reg *fakeRegistry) {
	reg.addPlugin(
		api.PluginDescriptor{
			Slug:         "github-mcp",
			DisplayName:  "GitHub MCP",
			Artifact:     api.ArtifactNPM,
			PackageRef:   "@acme/github-mcp",
			SourceURL:    reg.srv.URL + "/probe/github-mcp",
			Capabilities: []string{"create_issue", "search_repos"},
		},
		api.PluginSummary{
			Slug:        "github-mcp",
			DisplayName: "GitHub MCP",
			Description: "Issues, pull requests, and repository search.",
			Verified:    true,
			Downloads:   4200,
		},
		"vcs",
	)
	reg.setValidation(&api.ValidationResult{
		Slug:   "github-mcp",
		Status: api.ValidationVerified,
		Checks: api.ValidationChecks{
			RepoReachable:     boolPtr(true),
			Installable:       boolPtr(true),
			ProtocolCompliant: boolPtr(true),
			ToolsEnumerated:   boolPtr(true),
		},
		Tools:           []api.Tool{{Name: "create_issue"}, {Name: "search_repos"}},
		ExecutionTimeMs: 1800,
	})

	// Port 9 on loopback has no listener; the source probe gets an
	// immediate connection refusal.
	reg.addPlugin(
		api.PluginDescriptor{
			Slug:        "weather-mcp",
			DisplayName: "Weather MCP",
			Artifact:    api.ArtifactNPM,
			PackageRef:  "@acme/weather-mcp",
			SourceURL:   "http://127.0.0.1:9/",
		},
		api.PluginSummary{
			Slug:        "weather-mcp",
			DisplayName: "Weather MCP",
			Description: "Forecast lookups by coordinates.",
			Verified:    false,
			Downloads:   310,
		},
		"data",
	)

	reg.addPlugin(
		api.PluginDescriptor{
			Slug:        "acme/csv-tools",
			DisplayName: "CSV Tools",
			Artifact:    api.ArtifactImage,
			ImageRef:    "ghcr.io/acme/csv-tools:1.2.0",
			SourceURL:   reg.srv.URL + "/probe/acme/csv-tools",
		},
		api.PluginSummary{
			Slug:        "acme/csv-tools",
			DisplayName: "CSV Tools",
			Description: "Parse and transform CSV files.",
			Verified:    false,
			Downloads:   87,
		},
		"data",
	)
}

func boolPtr(b bool) *bool {
	return &b
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("gateway on %s did not start listening", addr)
}

// connect dials the booted gateway the way the CLI does.
func (h *harness) connect(t *testing.T) *agent.Client {
	t.Helper()
	logger := agent.NewLoggerWithWriter(false, false, false, io.Discard)
	client := agent.NewClient(h.endpoint, logger, agent.TransportStreamableHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.LoadTools(ctx))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// call runs one operation tool and returns the parsed envelope, the raw
// result text, and the client error (set when the gateway flagged the
// result as an error). Plain-text rejections leave the envelope zero.
func (h *harness) call(t *testing.T, client *agent.Client, op string, args map[string]interface{}) (envelope, string, error) {
	t.Helper()
	name, ok := client.FindOperationTool(op)
	require.True(t, ok, "gateway does not expose an operation tool for %s", op)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	raw, callErr := client.CallToolSimple(ctx, name, args)

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return envelope{}, raw, callErr
	}
	return env, raw, callErr
}
