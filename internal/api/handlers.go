package api

import (
	"context"
	"sync"
	"time"
)

// CacheHandler provides the cache store used to avoid redundant work.
// Get never returns an error: a backend failure is a miss, because a missed
// cache costs money and time, not correctness.
type CacheHandler interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	Close() error
}

// LedgerHandler records billable events, exactly once per idempotency key.
type LedgerHandler interface {
	// Charge commits a billing event strictly before the corresponding
	// work begins. A Duplicate receipt means the key was already charged
	// and the caller must short-circuit to the cached prior result.
	Charge(ctx context.Context, event Event, idempotencyKey string) (Receipt, error)

	// SetPrices replaces the per-event price table. Used by the pricing
	// hot reload; charges in flight keep the price they started with.
	SetPrices(prices map[Event]int64)

	Close() error
}

// RegistryHandler is the boundary to the external plugin registry.
type RegistryHandler interface {
	GetPlugin(ctx context.Context, slug string) (*PluginDescriptor, error)
	Search(ctx context.Context, query string, filters map[string]string) ([]PluginSummary, error)

	// GetValidation returns the latest persisted validation verdict for
	// the slug, or a not_found error when none exists.
	GetValidation(ctx context.Context, slug string) (*ValidationResult, error)
	PublishValidation(ctx context.Context, result *ValidationResult) error

	// ProbeSource is a cheap existence probe against the plugin's declared
	// source location. It never returns an error; unreachable is false.
	ProbeSource(ctx context.Context, descriptor *PluginDescriptor) bool
}

// Installation describes a materialized plugin artifact ready to run.
type Installation struct {
	// Dir is the attempt-scoped working directory. Unique per attempt,
	// never reused.
	Dir string

	// Command and Args launch the installed plugin process.
	Command string
	Args    []string

	// Env is the minimal environment for the child process. Parent
	// credentials are never inherited.
	Env []string

	// Cleanup removes the working directory. Safe to call more than once;
	// it never fails the caller.
	Cleanup func()
}

// InstallerHandler materializes plugin artifacts into disposable working
// directories.
type InstallerHandler interface {
	Install(ctx context.Context, descriptor *PluginDescriptor) (*Installation, error)
}

// ValidatorHandler runs the protocol validation pipeline for one plugin.
// A validation failure is a normal result, not an error: the returned
// ValidationResult carries status failed with per-check detail. The error
// return is reserved for system faults that prevented producing a result.
type ValidatorHandler interface {
	Validate(ctx context.Context, slug string) (*ValidationResult, error)
}

// DeployerHandler creates and monitors remote hosted instances.
type DeployerHandler interface {
	// Deploy runs the deployment state machine to a terminal state.
	// The credential must never outlive the call or appear in any log,
	// cache entry, or persisted record.
	Deploy(ctx context.Context, slug string, credential string) (*DeploymentRecord, error)

	// GetDeployment returns the stored record for a slug, or a not_found
	// error when the slug was never deployed.
	GetDeployment(ctx context.Context, slug string) (*DeploymentRecord, error)
}

// RateLimitHandler bounds request rates per caller key.
type RateLimitHandler interface {
	Allow(ctx context.Context, key string) RateDecision
	Close() error
}

// EventBusHandler fans out lifecycle events to subscribers. The bus is
// optional: callers must nil-check GetEventBus before publishing.
type EventBusHandler interface {
	// PublishDeploymentTransition announces one deployment state change.
	PublishDeploymentTransition(slug string, from, to DeploymentState)

	// PublishValidationOutcome announces a finished validation run.
	PublishValidationOutcome(result *ValidationResult)

	// Subscribe returns a buffered event channel. A subscriber that falls
	// behind misses events instead of blocking publishers.
	Subscribe() <-chan LifecycleEvent

	Close() error
}

// Handler registry variables store the registered implementations.
// These variables are protected by handlerMutex for thread-safe access.
var (
	cacheHandler     CacheHandler
	ledgerHandler    LedgerHandler
	registryHandler  RegistryHandler
	installerHandler InstallerHandler
	validatorHandler ValidatorHandler
	deployerHandler  DeployerHandler
	rateLimitHandler RateLimitHandler
	eventBusHandler  EventBusHandler
	routerHandler    RouterHandler

	// handlerMutex protects all handler registry operations for thread-safe
	// registration and access.
	handlerMutex sync.RWMutex
)

// RegisterCache registers the cache store handler implementation.
//
// The registration is thread-safe and should be called during system
// initialization. Only one handler can be registered at a time; subsequent
// registrations replace the previous handler.
//
// Example:
//
//	store := cache.NewMemoryStore(cfg.Cache)
//	api.RegisterCache(&cache.Adapter{Store: store})
func RegisterCache(h CacheHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	cacheHandler = h
}

// GetCache returns the registered cache handler.
//
// Returns nil if no handler has been registered yet. Callers should always
// check for nil before using the returned handler and treat a missing
// handler as a system fault, not a reason to panic.
func GetCache() CacheHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return cacheHandler
}

// RegisterLedger registers the billing ledger handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterLedger(h LedgerHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	ledgerHandler = h
}

// GetLedger returns the registered ledger handler, or nil if not registered.
func GetLedger() LedgerHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return ledgerHandler
}

// RegisterRegistry registers the plugin registry handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterRegistry(h RegistryHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	registryHandler = h
}

// GetRegistry returns the registered registry handler, or nil if not registered.
func GetRegistry() RegistryHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return registryHandler
}

// RegisterInstaller registers the plugin installer handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterInstaller(h InstallerHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	installerHandler = h
}

// GetInstaller returns the registered installer handler, or nil if not registered.
func GetInstaller() InstallerHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return installerHandler
}

// RegisterValidator registers the protocol validator handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterValidator(h ValidatorHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	validatorHandler = h
}

// GetValidator returns the registered validator handler, or nil if not registered.
func GetValidator() ValidatorHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return validatorHandler
}

// RegisterDeployer registers the deployment orchestrator handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterDeployer(h DeployerHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	deployerHandler = h
}

// GetDeployer returns the registered deployer handler, or nil if not registered.
func GetDeployer() DeployerHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return deployerHandler
}

// RegisterRateLimit registers the rate limiter handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterRateLimit(h RateLimitHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	rateLimitHandler = h
}

// GetRateLimit returns the registered rate limit handler, or nil if not registered.
func GetRateLimit() RateLimitHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return rateLimitHandler
}

// RegisterEventBus registers the lifecycle event bus handler implementation.
//
// Thread-safe: Yes, protected by handlerMutex.
func RegisterEventBus(h EventBusHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	eventBusHandler = h
}

// GetEventBus returns the registered event bus handler, or nil when none is
// wired. Publishing is best-effort; a nil bus means events are simply not
// emitted.
func GetEventBus() EventBusHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return eventBusHandler
}

// RegisterRouter registers the operation router handler implementation.
// Thread-safe: Yes, protected by handlerMutex.
func RegisterRouter(h RouterHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	routerHandler = h
}

// GetRouter returns the registered router handler, or nil if not registered.
func GetRouter() RouterHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return routerHandler
}

// ResetForTest clears all registered handlers. Tests that register fakes
// must call this in cleanup so handlers never leak between tests.
func ResetForTest() {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	cacheHandler = nil
	ledgerHandler = nil
	registryHandler = nil
	installerHandler = nil
	validatorHandler = nil
	deployerHandler = nil
	rateLimitHandler = nil
	eventBusHandler = nil
	routerHandler = nil
}
