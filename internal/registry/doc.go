// Package registry is the HTTP client for the external plugin registry.
//
// The registry is the system of record for plugin descriptors, search, and
// persisted validation verdicts. This package wraps its JSON API behind the
// api.RegistryHandler seam so the rest of the gateway never sees HTTP.
//
// Transport faults and 5xx responses are retried with backoff and counted
// against a circuit breaker; a clean 4xx answers immediately and keeps the
// breaker closed, because the backend is healthy even when the request is
// wrong. A 404 maps to the not_found error kind so callers can distinguish
// "no such plugin" from "registry is down".
//
// ProbeSource is deliberately different from the rest of the client: it is a
// best-effort reachability check against the plugin's own source location,
// outside the registry, and it reports false rather than erroring.
package registry
