// Package router is the single entry point for gateway operations.
//
// Execute enforces a fixed order: shape validation, the deploy rate
// ceiling, cache lookup, slug resolution, the billing charge, dispatch, and
// the cache write-back. The order carries the billing policy: malformed
// input, unknown slugs, missing wiring, and rate-limited calls all fail
// before the ledger is touched, while validation and deployment runs are
// charged before they start and stay charged whatever their outcome.
//
// A duplicate idempotency key short-circuits to the prior stored result
// instead of re-executing. When that result has expired, the work re-runs
// without a second charge; the key was already paid for.
//
// Every outcome is an envelope, never a Go error. Cost is the exact amount
// this call charged, so cache hits, replays, and rejections all report
// zero.
package router
