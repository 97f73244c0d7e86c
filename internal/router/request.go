package router

import (
	"errors"
	"net"
	"net/netip"
	"unicode"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

const (
	maxSlugLength           = 128
	maxIdempotencyKeyLength = 256
)

// validateShape rejects malformed requests before anything else runs.
// Nothing that fails here ever reaches the rate limiter or the ledger.
func validateShape(req *api.Request) *api.OperationError {
	switch req.Event {
	case api.EventSearch, api.EventConfig, api.EventValidate, api.EventDeploy:
	default:
		return api.NewOperationError(api.ErrorKindInput,
			"event must be one of search, config, validate, deploy")
	}

	if req.Event != api.EventSearch {
		if req.Slug == "" {
			return api.NewOperationError(api.ErrorKindInput, "slug is required")
		}
		if !validSlug(req.Slug) {
			return api.NewOperationError(api.ErrorKindInput, "slug is not a valid plugin identifier")
		}
	}

	if req.Event == api.EventDeploy {
		if req.Credential == "" {
			return api.NewOperationError(api.ErrorKindCredential, "deploy requires a credential")
		}
		if err := api.ValidateCredentialSyntax(req.Credential); err != nil {
			var opErr *api.OperationError
			if errors.As(err, &opErr) {
				return opErr
			}
			return api.NewOperationError(api.ErrorKindCredential, "credential is malformed")
		}
	} else if req.Credential != "" {
		// A credential on a non-deploy operation is a caller bug; rejecting
		// it keeps secrets out of paths that never need them.
		return api.NewOperationError(api.ErrorKindInput, "credential is only accepted for deploy")
	}

	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		return api.NewOperationError(api.ErrorKindInput, "idempotency key is too long")
	}
	for _, r := range req.IdempotencyKey {
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return api.NewOperationError(api.ErrorKindInput, "idempotency key contains invalid characters")
		}
	}

	return nil
}

// validSlug bounds plugin identifiers to registry-shaped names such as
// "acme/web-scraper".
func validSlug(slug string) bool {
	if len(slug) == 0 || len(slug) > maxSlugLength {
		return false
	}
	if slug[0] == '/' || slug[0] == '.' || slug[len(slug)-1] == '/' {
		return false
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '/':
		default:
			return false
		}
	}
	return true
}

// rateLimitKey derives the opaque limiter key for a request: the credential
// fingerprint when one is present, the caller's address class otherwise.
func rateLimitKey(req *api.Request) string {
	if req.Credential != "" {
		return "cred:" + api.CredentialFingerprint(req.Credential)
	}
	return "ip:" + addressClass(req.ClientAddr)
}

// addressClass collapses a peer address to its surrounding block (/24 for
// IPv4, /64 for IPv6) so one caller cannot dodge the limiter by rotating
// within their own network.
func addressClass(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return "unknown"
	}
	bits := 24
	if ip.Is6() {
		bits = 64
	}
	prefix, err := ip.Prefix(bits)
	if err != nil {
		return "unknown"
	}
	return prefix.String()
}

// cacheParams is the canonical parameter set shared by the cache key and
// the derived idempotency key, so both identify the same logical request.
func cacheParams(req *api.Request) map[string]interface{} {
	switch req.Event {
	case api.EventSearch:
		return map[string]interface{}{"query": req.Query, "filters": req.Filters}
	default:
		return map[string]interface{}{"slug": req.Slug}
	}
}
