// Package verify authenticates inbound deploy webhooks against the shared
// secret using an HMAC-SHA256 digest over the raw request body.
package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is the optional scheme prefix some senders prepend to the
// hex digest in the signature header.
const SignaturePrefix = "sha256="

// Enabled reports whether verification is active for the given secret. An
// empty secret disables verification entirely; callers should warn about
// that once at startup, not per request.
func Enabled(secret string) bool {
	return secret != ""
}

// Verify checks header against HMAC-SHA256(body, secret), hex-encoded.
// With an empty secret every request passes. With a secret set, a missing
// or empty header always fails. The digest comparison is constant-time
// after an initial length check.
func Verify(secret string, body []byte, header string) bool {
	if !Enabled(secret) {
		return true
	}
	if header == "" {
		return false
	}

	header = strings.TrimPrefix(header, SignaturePrefix)

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(body); err != nil {
		return false
	}
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(expected) != len(header) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(header)) == 1
}

// Sign computes the signature header value for a body, prefix included.
// Used by tests and by operators generating probe requests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
