package config

const (
	// DefaultGatewayPort is the default port for the gateway endpoint.
	DefaultGatewayPort = 8090

	// DefaultMetricsPort is the default port for Prometheus exposition.
	DefaultMetricsPort = 9090

	// DefaultDeployPerHour caps deployment requests per caller per rolling hour.
	DefaultDeployPerHour = 10

	// DefaultInstallTimeoutSeconds bounds plugin artifact installation.
	DefaultInstallTimeoutSeconds = 60

	// DefaultHandshakeTimeoutSeconds bounds the protocol handshake with a
	// spawned plugin process.
	DefaultHandshakeTimeoutSeconds = 10

	// DefaultPollIntervalSeconds is the deployment build poll cadence.
	DefaultPollIntervalSeconds = 5

	// DefaultBudgetSeconds is the deployment wall-clock polling budget.
	// Exhausting it is a hard failure, not an unknown.
	DefaultBudgetSeconds = 180
)

// GetDefaultConfig returns the default configuration for openconductor.
// Every field is populated so a missing config file is fully usable.
func GetDefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Port:       DefaultGatewayPort,
			Host:       "localhost",
			Transport:  MCPTransportStreamableHTTP,
			ToolPrefix: "oc",
		},
		Registry: RegistryConfig{
			BaseURL:        "https://registry.openconductor.dev/api/v1",
			TimeoutSeconds: 15,
			MaxRetries:     3,
		},
		Hosting: HostingConfig{
			BaseURL:        "https://deploy.openconductor.dev/api/v1",
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			Backend:            BackendMemory,
			Redis:              RedisConfig{Addr: "localhost:6379"},
			MaxEntries:         10000,
			SearchTTLSeconds:   300,
			ConfigTTLSeconds:   3600,
			ValidateTTLSeconds: 86400,
		},
		Ledger: LedgerConfig{
			Backend: BackendMemory,
		},
		RateLimit: RateLimitConfig{
			Backend:       BackendMemory,
			Redis:         RedisConfig{Addr: "localhost:6379"},
			DeployPerHour: DefaultDeployPerHour,
		},
		Validator: ValidatorConfig{
			InstallTimeoutSeconds:   DefaultInstallTimeoutSeconds,
			HandshakeTimeoutSeconds: DefaultHandshakeTimeoutSeconds,
			MaxConcurrent:           4,
		},
		Deployer: DeployerConfig{
			PollIntervalSeconds: DefaultPollIntervalSeconds,
			BudgetSeconds:       DefaultBudgetSeconds,
			InstanceNamePrefix:  "oc",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    DefaultMetricsPort,
		},
		Pricing: PricingConfig{
			SearchCents:   1,
			ConfigCents:   2,
			ValidateCents: 10,
			DeployCents:   50,
		},
	}
}
