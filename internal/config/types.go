package config

// Config is the top-level configuration structure for openconductor.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Registry  RegistryConfig  `yaml:"registry"`
	Hosting   HostingConfig   `yaml:"hosting"`
	Cache     CacheConfig     `yaml:"cache"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Validator ValidatorConfig `yaml:"validator"`
	Deployer  DeployerConfig  `yaml:"deployer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Pricing   PricingConfig   `yaml:"pricing"`
}

const (
	// MCPTransportStreamableHTTP is the streamable HTTP transport.
	MCPTransportStreamableHTTP = "streamable-http"
	// MCPTransportSSE is the Server-Sent Events transport.
	MCPTransportSSE = "sse"
	// MCPTransportStdio is the standard I/O transport.
	MCPTransportStdio = "stdio"
)

// Backend selection for the cache, ledger, and rate limiter.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// GatewayConfig defines the configuration for the protocol gateway server.
type GatewayConfig struct {
	Port       int    `yaml:"port,omitempty"`       // Port for the gateway endpoint (default: 8090)
	Host       string `yaml:"host,omitempty"`       // Host to bind to (default: localhost)
	Transport  string `yaml:"transport,omitempty"`  // Transport to use (default: streamable-http)
	ToolPrefix string `yaml:"toolPrefix,omitempty"` // Prefix for all exposed tools (default: "oc")
}

// RegistryConfig points at the external plugin registry.
type RegistryConfig struct {
	BaseURL        string `yaml:"baseURL,omitempty"`        // Registry API base URL
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"` // Per-request timeout (default: 15)
	MaxRetries     int    `yaml:"maxRetries,omitempty"`     // Retry attempts for idempotent GETs (default: 3)
}

// HostingConfig points at the managed hosting platform.
type HostingConfig struct {
	BaseURL        string `yaml:"baseURL,omitempty"`        // Hosting platform API base URL
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"` // Per-request timeout (default: 30)
}

// RedisConfig holds connection settings shared by Redis-backed components.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`     // host:port (default: localhost:6379)
	Password string `yaml:"password,omitempty"` // Overridden by OPENCONDUCTOR_REDIS_PASSWORD
	DB       int    `yaml:"db,omitempty"`
}

// CacheConfig defines the cache store backend and per-operation TTLs.
type CacheConfig struct {
	Backend            string      `yaml:"backend,omitempty"` // memory or redis (default: memory)
	Redis              RedisConfig `yaml:"redis,omitempty"`
	MaxEntries         int         `yaml:"maxEntries,omitempty"`         // Memory backend size bound (default: 10000)
	SearchTTLSeconds   int         `yaml:"searchTTLSeconds,omitempty"`   // default: 300
	ConfigTTLSeconds   int         `yaml:"configTTLSeconds,omitempty"`   // default: 3600
	ValidateTTLSeconds int         `yaml:"validateTTLSeconds,omitempty"` // default: 86400
}

// LedgerConfig defines the billing ledger backend.
type LedgerConfig struct {
	Backend     string `yaml:"backend,omitempty"`     // memory or postgres (default: memory)
	PostgresDSN string `yaml:"postgresDSN,omitempty"` // Overridden by OPENCONDUCTOR_POSTGRES_DSN
}

// RateLimitConfig bounds deployment request abuse per caller.
type RateLimitConfig struct {
	Backend       string      `yaml:"backend,omitempty"` // memory or redis (default: memory)
	Redis         RedisConfig `yaml:"redis,omitempty"`
	DeployPerHour int         `yaml:"deployPerHour,omitempty"` // default: 10
}

// ValidatorConfig bounds the validation pipeline.
type ValidatorConfig struct {
	InstallTimeoutSeconds   int    `yaml:"installTimeoutSeconds,omitempty"`   // default: 60
	HandshakeTimeoutSeconds int    `yaml:"handshakeTimeoutSeconds,omitempty"` // default: 10
	MaxConcurrent           int    `yaml:"maxConcurrent,omitempty"`           // Parallel validations (default: 4)
	WorkDir                 string `yaml:"workDir,omitempty"`                 // Parent for attempt dirs (default: os temp)
}

// DeployerConfig bounds the deployment polling loop.
type DeployerConfig struct {
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds,omitempty"` // default: 5
	BudgetSeconds       int    `yaml:"budgetSeconds,omitempty"`       // Wall-clock budget (default: 180)
	InstanceNamePrefix  string `yaml:"instanceNamePrefix,omitempty"`  // Deterministic instance names (default: "oc")
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	Port    int  `yaml:"port,omitempty"` // default: 9090
}

// PricingConfig fixes the charge, in cents, for each billable event.
// Operators may edit these live; the pricing watcher applies changes
// without a restart.
type PricingConfig struct {
	SearchCents   int64 `yaml:"searchCents"`
	ConfigCents   int64 `yaml:"configCents"`
	ValidateCents int64 `yaml:"validateCents"`
	DeployCents   int64 `yaml:"deployCents"`
}
