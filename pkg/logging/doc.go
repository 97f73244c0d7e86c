// Package logging provides a structured logging system for openconductor with
// unified log handling and flexible output formatting.
//
// This package implements a logging system built on Go's standard slog package,
// providing consistent logging behavior with structured output and level filtering.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// ## Structured Logging
// All log entries include:
//   - Timestamp with nanosecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage Examples
//
// ## Initialization
//
//	import "github.com/epicmotionSD/openconductor-sub010/pkg/logging"
//
//	// Initialize with Info level text logging to stdout
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	// Daemon mode emits JSON for log aggregation
//	logging.InitForDaemon(logging.LevelInfo, os.Stdout)
//
//	// Log messages
//	logging.Info("bootstrap", "Application starting up")
//	logging.Debug("config", "Loaded configuration from %s", configPath)
//	logging.Warn("cache", "Redis unavailable, treating reads as misses")
//	logging.Error("deployer", err, "Build polling failed for %s", slug)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **bootstrap**: Application initialization and startup
//   - **config**: Configuration loading and validation
//   - **router**: Operation dispatch, rate limiting, and billing order
//   - **cache**: Cache store reads, writes, and backend degradation
//   - **ledger**: Billing charges and duplicate detection
//   - **registry**: External plugin registry calls
//   - **installer**: Plugin artifact installation
//   - **validator**: Protocol validation pipeline
//   - **deployer**: Deployment state machine and build polling
//   - **gateway**: Protocol server transports and tool calls
//   - **agent**: Interactive client operations
//
// # Credential Hygiene
//
// Caller credentials must never reach a logging call site. Components pass
// only one-way fingerprints into log and audit messages; the audit helper's
// Actor field is defined as a fingerprint, never a secret.
//
// # Audit Logging
//
// The package provides specialized audit logging for security-sensitive
// operations:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "deploy",
//	    Outcome: "succeeded",
//	    Actor:   record.OwnerCredentialFingerprint,
//	    Target:  record.Slug,
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix for easy
// filtering by log aggregation systems.
//
// # Thread Safety
//
// The logging system is fully thread-safe:
//   - Safe concurrent logging from multiple goroutines
//   - Level filtering at handler level for efficiency
//   - No memory allocation for filtered-out messages
package logging
