// Package api is the central coordination layer for openconductor. It defines
// the handler interfaces every component implements, the shared domain types
// they exchange, and the service-locator registry that wires them together
// without import cycles.
//
// # Architecture
//
// Components never import each other directly. Instead:
//
//  1. This package defines a handler interface per component (CacheHandler,
//     LedgerHandler, RegistryHandler, InstallerHandler, ValidatorHandler,
//     DeployerHandler, RateLimitHandler).
//  2. Each component package provides an adapter implementing its interface
//     and registers it during bootstrap via the Register* functions.
//  3. Consumers (the router, the gateway, CLI commands) retrieve handlers
//     with the Get* functions.
//
// Get* returns nil when nothing is registered; callers treat that as a
// system fault (internal error), never a panic.
//
// # Domain Types
//
// The shared data model lives here so every component speaks the same
// vocabulary: PluginDescriptor (immutable registry input), ValidationResult
// with its per-check nullable outcomes, DeploymentRecord with the deployment
// state machine, Receipt for ledger charges, and RateDecision.
//
// # Error Taxonomy
//
// OperationError classifies failures into kinds that drive billing policy:
// input, not_found, rate_limit, and credential errors are rejected before
// any charge; install, protocol_timeout, and protocol_compliance failures
// are billed as validate; deployment_timeout and deployment_failed are
// billed as deploy; internal faults are never billed.
//
// # Credential Hygiene
//
// ValidateCredentialSyntax and CredentialFingerprint are the only operations
// this codebase performs on a raw credential. The fingerprint is the only
// derived form that may be logged, persisted, or used as a key.
package api
