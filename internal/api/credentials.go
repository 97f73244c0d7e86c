package api

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"
)

// Credential length bounds. Hosting platform tokens observed in the wild are
// 20 to 200 characters; the upper bound only guards against abuse.
const (
	minCredentialLength = 20
	maxCredentialLength = 512
)

// ValidateCredentialSyntax checks the shape of a caller credential before
// any remote call is made. It never inspects or stores the value beyond the
// check itself. A failure here is a credential error and is never billed.
func ValidateCredentialSyntax(credential string) error {
	if len(credential) < minCredentialLength {
		return NewOperationError(ErrorKindCredential, "credential is too short")
	}
	if len(credential) > maxCredentialLength {
		return NewOperationError(ErrorKindCredential, "credential is too long")
	}
	for _, r := range credential {
		if r > unicode.MaxASCII || unicode.IsSpace(r) || unicode.IsControl(r) {
			return NewOperationError(ErrorKindCredential, "credential contains invalid characters")
		}
	}
	return nil
}

// CredentialFingerprint reduces a credential to a one-way hash for audit
// correlation and rate limit keying. The raw value is unrecoverable from the
// fingerprint; this is the only form of the credential that may be logged or
// persisted.
func CredentialFingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
