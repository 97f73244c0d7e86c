// Package cache implements the gateway's cache store: a TTL key/value layer
// that avoids redundant registry calls and re-validation work.
//
// Keys are derived with Key from the operation kind and its canonical
// parameter serialization, hashed so raw query content never appears in
// storage keys. Two backends implement the Store contract:
//
//   - MemoryStore: in-process map with lazy expiry, a background sweep, and
//     oldest-written eviction when size-bounded.
//   - RedisStore: shared cache for multi-instance deployments. Backend
//     failures degrade to misses on read and dropped writes, never errors;
//     availability wins over consistency because every entry is
//     reconstructible.
//
// Deployment results must never be cached. That rule is enforced by the
// router, which simply never writes deploy responses here.
package cache
