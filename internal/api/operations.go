package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Request is one operation submitted to the router. The event set is closed;
// anything else is rejected as an input error before any charge.
type Request struct {
	Event Event  `json:"event"`
	Slug  string `json:"slug,omitempty"`

	// Credential is the caller's hosting credential, required only for
	// deploy. It is excluded from serialization so a marshaled request can
	// never carry it into logs, caches, or wire captures.
	Credential string `json:"-"`

	// Query and Filters are the free-form search parameters.
	Query   string            `json:"query,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`

	// IdempotencyKey dedupes retries of the same logical request. Optional;
	// the router derives one when absent.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`

	// ClientAddr is the transport-observed peer address, used for rate
	// limit keying when no credential is present.
	ClientAddr string `json:"-"`
}

// ResponseMeta carries per-call execution detail.
type ResponseMeta struct {
	ExecutionTimeMs int64 `json:"executionTimeMs"`
	// Cached is true only when the data came from a prior execution, via
	// the cache store or an idempotent replay.
	Cached bool `json:"cached"`
}

// ResponseError is the failure detail in a response envelope. Message is
// always safe to show the caller; underlying causes stay in server logs.
type ResponseError struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// Response is the envelope returned for every operation. Cost is the exact
// amount charged for this call, in currency units (zero when nothing was
// charged). A failed validation or deployment is a successful operation with
// a failure payload in Data; Error is set only when the operation itself
// could not run.
type Response struct {
	Success bool           `json:"success"`
	Event   Event          `json:"event"`
	Cost    float64        `json:"cost"`
	Data    interface{}    `json:"data,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
	Error   *ResponseError `json:"error,omitempty"`
}

// SearchData is the payload for a search operation.
type SearchData struct {
	Plugins []PluginSummary `json:"plugins"`
	Total   int             `json:"total"`
}

// ConfigData is the payload for a config (detail lookup) operation: the
// registry descriptor enriched with the latest known verdict and deployment.
type ConfigData struct {
	Descriptor *PluginDescriptor `json:"descriptor"`
	// Validation is the latest persisted verdict, when one exists.
	Validation *ValidationResult `json:"validation,omitempty"`
	// Deployment is the stored deployment record, when one exists.
	Deployment *DeploymentRecord `json:"deployment,omitempty"`
}

// RouterHandler is the single entry point for operations. Execute never
// returns a Go error: every outcome, including system faults, is folded
// into the response envelope.
type RouterHandler interface {
	Execute(ctx context.Context, req Request) *Response
}

// CostFromCents converts a ledger amount to the envelope's currency units.
func CostFromCents(cents int64) float64 {
	return float64(cents) / 100
}

// idempotencyPayload is the canonical serialization input for derived keys.
// encoding/json writes map keys in sorted order, so logically equal requests
// produce byte-identical serializations.
type idempotencyPayload struct {
	Event       Event             `json:"event"`
	Slug        string            `json:"slug"`
	Query       string            `json:"query"`
	Filters     map[string]string `json:"filters"`
	Fingerprint string            `json:"fingerprint"`
}

// DeriveIdempotencyKey derives a stable idempotency key from request
// content, so logically identical requests share one charge. The credential
// enters only as its fingerprint; the raw value never reaches the ledger.
func DeriveIdempotencyKey(event Event, slug, query string, filters map[string]string, fingerprint string) string {
	canonical, err := json.Marshal(idempotencyPayload{
		Event:       event,
		Slug:        slug,
		Query:       query,
		Filters:     filters,
		Fingerprint: fingerprint,
	})
	if err != nil {
		canonical = []byte(fmt.Sprintf("%s|%s|%s|%v|%s", event, slug, query, filters, fingerprint))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
