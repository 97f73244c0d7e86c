package cli

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

func TestGatewayEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		expected string
	}{
		{
			name:     "defaults to localhost streamable-http",
			cfg:      config.Config{},
			expected: "http://localhost:8090/mcp",
		},
		{
			name: "explicit host and port",
			cfg: config.Config{
				Gateway: config.GatewayConfig{
					Host: "0.0.0.0",
					Port: 9191,
				},
			},
			expected: "http://0.0.0.0:9191/mcp",
		},
		{
			name: "sse transport uses sse path",
			cfg: config.Config{
				Gateway: config.GatewayConfig{
					Port:      8090,
					Transport: config.MCPTransportSSE,
				},
			},
			expected: "http://localhost:8090/sse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GatewayEndpoint(&tt.cfg))
		})
	}
}

func TestIsRemoteEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		expected bool
	}{
		{
			name:     "localhost is local",
			endpoint: "http://localhost:8090/mcp",
			expected: false,
		},
		{
			name:     "loopback IP is local",
			endpoint: "http://127.0.0.1:8090/mcp",
			expected: false,
		},
		{
			name:     "IPv6 loopback is local",
			endpoint: "http://[::1]:8090/mcp",
			expected: false,
		},
		{
			name:     "remote host is remote",
			endpoint: "https://gateway.example.com/mcp",
			expected: true,
		},
		{
			name:     "localhost in the path does not make it local",
			endpoint: "https://gateway.example.com/localhost/mcp",
			expected: true,
		},
		{
			name:     "case-insensitive hostname",
			endpoint: "http://LOCALHOST:8090/mcp",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRemoteEndpoint(tt.endpoint))
		})
	}
}

func TestCheckServerRunning_WithMockServer(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse int
		expectError    bool
		errorContains  string
	}{
		{
			name:           "gateway running (202 Accepted)",
			serverResponse: http.StatusAccepted,
			expectError:    false,
		},
		{
			name:           "gateway running (200 OK)",
			serverResponse: http.StatusOK,
			expectError:    false,
		},
		{
			name:           "gateway not responding correctly (404)",
			serverResponse: http.StatusNotFound,
			expectError:    true,
			errorContains:  "not responding correctly",
		},
		{
			name:           "gateway error (500)",
			serverResponse: http.StatusInternalServerError,
			expectError:    true,
			errorContains:  "not responding correctly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.serverResponse)
			}))
			defer server.Close()

			err := CheckServerRunning(server.URL)
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckServerRunning_NoServer(t *testing.T) {
	err := CheckServerRunning("http://localhost:1/mcp")
	assert.Error(t, err)

	var notRunning *ServerNotRunningError
	assert.ErrorAs(t, err, &notRunning)
	assert.Contains(t, err.Error(), "openconductor serve")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
	assert.Equal(t, "✓ deployed", FormatSuccess("deployed"))
	assert.Equal(t, "⚠ slow gateway", FormatWarning("slow gateway"))
}
