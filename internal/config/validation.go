package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

var validTransports = map[string]bool{
	MCPTransportStreamableHTTP: true,
	MCPTransportSSE:            true,
	MCPTransportStdio:          true,
}

// Validate checks the configuration for values that would make the gateway
// unable to start or would silently disable billing and safety bounds.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if !validTransports[c.Gateway.Transport] {
		errs.Add("gateway.transport", fmt.Sprintf("must be one of %s, %s, %s",
			MCPTransportStreamableHTTP, MCPTransportSSE, MCPTransportStdio), c.Gateway.Transport)
	}
	if c.Gateway.Transport != MCPTransportStdio && (c.Gateway.Port <= 0 || c.Gateway.Port > 65535) {
		errs.Add("gateway.port", "must be between 1 and 65535", c.Gateway.Port)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs.Add("cache.backend", fmt.Sprintf("must be %s or %s", BackendMemory, BackendRedis), c.Cache.Backend)
	}
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.Ledger.PostgresDSN) == "" {
			errs.Add("ledger.postgresDSN", "is required for the postgres backend")
		}
	default:
		errs.Add("ledger.backend", fmt.Sprintf("must be %s or %s", BackendMemory, BackendPostgres), c.Ledger.Backend)
	}
	switch c.RateLimit.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs.Add("rateLimit.backend", fmt.Sprintf("must be %s or %s", BackendMemory, BackendRedis), c.RateLimit.Backend)
	}
	if c.RateLimit.DeployPerHour <= 0 {
		errs.Add("rateLimit.deployPerHour", "must be positive", c.RateLimit.DeployPerHour)
	}

	if c.Validator.InstallTimeoutSeconds <= 0 {
		errs.Add("validator.installTimeoutSeconds", "must be positive", c.Validator.InstallTimeoutSeconds)
	}
	if c.Validator.HandshakeTimeoutSeconds <= 0 {
		errs.Add("validator.handshakeTimeoutSeconds", "must be positive", c.Validator.HandshakeTimeoutSeconds)
	}
	if c.Validator.MaxConcurrent <= 0 {
		errs.Add("validator.maxConcurrent", "must be positive", c.Validator.MaxConcurrent)
	}

	if c.Deployer.PollIntervalSeconds <= 0 {
		errs.Add("deployer.pollIntervalSeconds", "must be positive", c.Deployer.PollIntervalSeconds)
	}
	if c.Deployer.BudgetSeconds < c.Deployer.PollIntervalSeconds {
		errs.Add("deployer.budgetSeconds", "must be at least one poll interval", c.Deployer.BudgetSeconds)
	}

	for field, cents := range map[string]int64{
		"pricing.searchCents":   c.Pricing.SearchCents,
		"pricing.configCents":   c.Pricing.ConfigCents,
		"pricing.validateCents": c.Pricing.ValidateCents,
		"pricing.deployCents":   c.Pricing.DeployCents,
	} {
		if cents < 0 {
			errs.Add(field, "must not be negative", cents)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
