package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies operation failures for billing policy and response
// shaping. The kind decides whether a failed operation was still charged:
// compute actually spent (install, handshake, deployment attempts) is billed,
// rejections before any work (input, rate limit, credential) are not.
type ErrorKind string

const (
	// ErrorKindInput is a malformed request. Never billed.
	ErrorKindInput ErrorKind = "input"
	// ErrorKindNotFound is an unknown slug. Never billed.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindRateLimit is a caller over the deploy ceiling. Never billed.
	ErrorKindRateLimit ErrorKind = "rate_limit"
	// ErrorKindCredential is a syntactically invalid credential, caught
	// before any remote call. Never billed.
	ErrorKindCredential ErrorKind = "credential"
	// ErrorKindInstall is a plugin artifact that could not be installed.
	// Billed as validate.
	ErrorKindInstall ErrorKind = "install"
	// ErrorKindProtocolTimeout is a plugin that never completed the
	// handshake in time. Billed as validate.
	ErrorKindProtocolTimeout ErrorKind = "protocol_timeout"
	// ErrorKindProtocolCompliance is a plugin that violated the protocol.
	// Billed as validate.
	ErrorKindProtocolCompliance ErrorKind = "protocol_compliance"
	// ErrorKindDeploymentTimeout is a polling budget exhausted without a
	// terminal status. Billed as deploy.
	ErrorKindDeploymentTimeout ErrorKind = "deployment_timeout"
	// ErrorKindDeploymentFailed is a build the platform reported as
	// failed. Billed as deploy.
	ErrorKindDeploymentFailed ErrorKind = "deployment_failed"
	// ErrorKindInternal is a system fault (backend unreachable, wiring
	// missing). Never billed; the caller should retry.
	ErrorKindInternal ErrorKind = "internal"
)

// OperationError is the structured failure for one gateway operation.
// Components return it at their boundary; the router folds it into the
// response envelope.
type OperationError struct {
	Kind    ErrorKind
	Message string
	// Err is the underlying cause, if any. It is never included in
	// response payloads, only in server-side logs.
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError builds an OperationError with the given kind.
func NewOperationError(kind ErrorKind, message string) *OperationError {
	return &OperationError{Kind: kind, Message: message}
}

// WrapOperationError builds an OperationError carrying an underlying cause.
func WrapOperationError(kind ErrorKind, message string, err error) *OperationError {
	return &OperationError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from err, or ErrorKindInternal when err is
// not an OperationError. A nil err has no kind and returns "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ErrorKindInternal
}

// IsKind checks whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsNotFound checks if an error indicates an unknown slug.
func IsNotFound(err error) bool {
	return IsKind(err, ErrorKindNotFound)
}
