// Package config defines the openconductor configuration model, its defaults,
// loading, validation, and live pricing reload.
//
// # Configuration Sources
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Compiled defaults (GetDefaultConfig) — complete on their own, so a
//     missing config file is not an error.
//  2. An optional config.yaml in the configured directory
//     (~/.config/openconductor by default).
//  3. Environment overrides for values that must not live in files:
//     OPENCONDUCTOR_POSTGRES_DSN, OPENCONDUCTOR_REDIS_ADDR,
//     OPENCONDUCTOR_REDIS_PASSWORD, OPENCONDUCTOR_REGISTRY_URL,
//     OPENCONDUCTOR_HOSTING_URL.
//
// # Structure
//
// The top-level Config groups settings per component: the gateway transport,
// the external registry and hosting platform endpoints, cache/ledger/rate
// limit backends, validator and deployer time bounds, metrics exposition, and
// the pricing table.
//
// # Validation
//
// (*Config).Validate rejects configurations that would make the gateway
// unable to start or would silently disable billing and safety bounds:
// unknown transports and backends, non-positive timeouts, a polling budget
// smaller than one poll interval, negative prices.
//
// # Live Pricing Reload
//
// PricingWatcher watches config.yaml with fsnotify and re-applies the pricing
// table on change. Reloads are debounced, and a file that fails to parse or
// validate is ignored so the last good table stays in effect. Only pricing is
// applied live; structural changes (backends, transports) require a restart.
package config
