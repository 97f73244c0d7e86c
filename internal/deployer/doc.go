// Package deployer turns a verified plugin into a running remote instance on
// the managed hosting platform.
//
// Each deployment attempt walks a forward-only state machine:
//
//	requested -> actorResolved -> buildTriggered -> building -> succeeded|failed
//
// Instance names are derived deterministically from the slug, so retried
// deployments resolve the same remote instance instead of creating duplicates.
// The caller's credential is used for exactly one call, resolving the remote
// instance, and is never stored; only its one-way fingerprint lands in the
// DeploymentRecord for audit correlation.
//
// Failures inside the pipeline (platform rejection, failed build, exhausted
// polling budget) are normal billable outcomes: they produce a failed
// DeploymentRecord, not an error. Only precondition faults (unverified plugin,
// malformed credential, missing handlers) and store faults surface as errors,
// and those never touch the record store.
package deployer
