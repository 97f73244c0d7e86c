package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const subsystem = "Gateway"

// Server exposes the four operations as MCP tools over the configured
// transport. Every tool call dispatches into the registered router; the
// server itself holds no operation state.
type Server struct {
	config config.GatewayConfig

	server *server.MCPServer

	// Transport-specific servers
	sseServer            *server.SSEServer
	streamableHTTPServer *server.StreamableHTTPServer
	stdioServer          *server.StdioServer

	ctx        context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex
}

// NewServer creates a gateway server for the given configuration.
func NewServer(cfg config.GatewayConfig) *Server {
	return &Server{config: cfg}
}

// Start creates the MCP server, registers the operation tools, and starts
// the configured transport. The transport listener runs in a goroutine;
// Start returns once it is launched.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return fmt.Errorf("gateway server already started")
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)

	mcpServer := server.NewMCPServer(
		"openconductor-gateway",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(s.buildTools()...)
	s.server = mcpServer
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	switch s.config.Transport {
	case config.MCPTransportSSE:
		logging.Info(subsystem, "Starting MCP gateway with SSE transport on %s", addr)
		baseURL := fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
		sseServer := server.NewSSEServer(
			mcpServer,
			server.WithBaseURL(baseURL),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithKeepAlive(true),
			server.WithKeepAliveInterval(30*time.Second),
		)
		s.mu.Lock()
		s.sseServer = sseServer
		s.mu.Unlock()
		go func() {
			if err := sseServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error(subsystem, err, "SSE server error")
			}
		}()

	case config.MCPTransportStdio:
		logging.Info(subsystem, "Starting MCP gateway with stdio transport")
		stdioServer := server.NewStdioServer(mcpServer)
		s.mu.Lock()
		s.stdioServer = stdioServer
		s.mu.Unlock()
		go func() {
			if err := stdioServer.Listen(s.ctx, os.Stdin, os.Stdout); err != nil {
				logging.Error(subsystem, err, "Stdio server error")
			}
		}()

	case config.MCPTransportStreamableHTTP:
		fallthrough
	default:
		logging.Info(subsystem, "Starting MCP gateway with streamable-http transport on %s", addr)
		streamableServer := server.NewStreamableHTTPServer(mcpServer)
		s.mu.Lock()
		s.streamableHTTPServer = streamableServer
		s.mu.Unlock()
		go func() {
			if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
				logging.Error(subsystem, err, "Streamable HTTP server error")
			}
		}()
	}

	return nil
}

// Stop shuts down the transport and releases the MCP server. The stdio
// transport stops on context cancellation and needs no explicit shutdown.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.server == nil {
		s.mu.Unlock()
		return fmt.Errorf("gateway server not started")
	}

	logging.Info(subsystem, "Stopping MCP gateway")

	cancelFunc := s.cancelFunc
	sseServer := s.sseServer
	streamableServer := s.streamableHTTPServer
	s.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if sseServer != nil {
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logging.Error(subsystem, err, "Error shutting down SSE server")
		}
	}

	if streamableServer != nil {
		if err := streamableServer.Shutdown(shutdownCtx); err != nil {
			logging.Error(subsystem, err, "Error shutting down streamable HTTP server")
		}
	}

	s.mu.Lock()
	s.server = nil
	s.sseServer = nil
	s.streamableHTTPServer = nil
	s.stdioServer = nil
	s.mu.Unlock()

	return nil
}

// GetEndpoint returns the gateway's client-facing endpoint for the
// configured transport.
func (s *Server) GetEndpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.config.Transport {
	case config.MCPTransportSSE:
		return fmt.Sprintf("http://%s:%d/sse", s.config.Host, s.config.Port)
	case config.MCPTransportStdio:
		return "stdio"
	default:
		return fmt.Sprintf("http://%s:%d/mcp", s.config.Host, s.config.Port)
	}
}
