// Package metrics exposes the gateway's Prometheus collectors and the side
// port that serves /metrics and /healthz.
//
// Collector registration tolerates re-registration: a second New adopts the
// collectors the first one registered. Every recording method is safe on a
// nil *Metrics, so callers wired without metrics need no guards.
package metrics
