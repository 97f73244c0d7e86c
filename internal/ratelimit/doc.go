// Package ratelimit bounds deployment request rates per caller key.
//
// Keys are opaque to the limiter; the router derives them from the caller's
// credential fingerprint (never the credential itself) or, for anonymous
// traffic, a coarse client address class.
//
// Two backends exist. The memory limiter keeps a sliding window of attempt
// timestamps per key, exact but per-process. The Redis limiter shares a
// fixed INCR+EXPIRE window across gateway instances; the window granularity
// is coarser, which is an accepted trade for multi-instance enforcement.
// Both fail open: a limiter backend outage must not take deployments down
// with it.
package ratelimit
