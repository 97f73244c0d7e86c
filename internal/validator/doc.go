// Package validator runs the protocol validation pipeline for untrusted
// plugins.
//
// The pipeline is linear with early exit: source reachability, install,
// protocol handshake, tool enumeration. The first failing step decides the
// verdict; later steps stay unattempted and their checks stay null, which
// is how a reader of the result tells "never tried" from "tried and
// failed". A verdict of failed is a normal, billable outcome. Only a fault
// that prevents the pipeline from producing any verdict at all surfaces as
// a status of error.
//
// The handshake step launches the installed plugin as a child process and
// speaks the tool protocol over its stdin/stdout: initialize, then request
// the tool list, reading newline-delimited responses until the matching
// reply arrives or the handshake budget elapses. On timeout the child is
// killed, never orphaned.
//
// Cleanup is unconditional. Whatever the outcome, including caller
// cancellation mid-run, the child process and the attempt directory are
// gone before Validate returns. Concurrent validations are bounded by a
// fixed slot count so a burst of requests cannot fork-bomb the host.
package validator
