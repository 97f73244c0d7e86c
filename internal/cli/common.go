package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// EndpointEnvVar is the environment variable for overriding the gateway
// endpoint without a flag.
const EndpointEnvVar = "OPENCONDUCTOR_ENDPOINT"

// GatewayEndpoint builds the MCP endpoint URL from gateway
// configuration, mirroring what the server itself would advertise.
func GatewayEndpoint(cfg *config.Config) string {
	host := cfg.Gateway.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Gateway.Port
	if port == 0 {
		port = 8090
	}

	switch cfg.Gateway.Transport {
	case config.MCPTransportSSE:
		return fmt.Sprintf("http://%s:%d/sse", host, port)
	default:
		return fmt.Sprintf("http://%s:%d/mcp", host, port)
	}
}

// IsRemoteEndpoint reports whether an endpoint URL points at another
// machine. Only the hostname is inspected, so "localhost" in a path or
// query cannot fool it.
func IsRemoteEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		// Unparseable means we cannot prove it is local.
		return true
	}

	host := strings.ToLower(u.Hostname())
	return host != "localhost" && host != "127.0.0.1" && host != "::1"
}

// CheckServerRunning probes whether a gateway answers at the endpoint.
func CheckServerRunning(endpoint string) error {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(endpoint)
	if err != nil {
		return &ServerNotRunningError{Endpoint: endpoint, Reason: err}
	}
	defer resp.Body.Close()

	// A streamable-http gateway answers GET with 200 or 202.
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway at %s is not responding correctly (status: %d). Try restarting with: openconductor serve", endpoint, resp.StatusCode)
	}

	return nil
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
