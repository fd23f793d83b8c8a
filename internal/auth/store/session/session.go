// Package session keeps server-side sessions keyed by an opaque cookie token.
// Tokens are never stored directly; both stores key on the token's SHA-256.
package session

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenKey derives the storage key for a session token.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LogRef is a short, non-reversible token reference for log lines.
func LogRef(token string) string {
	return TokenKey(token)[:12]
}
