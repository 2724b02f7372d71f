// Package viewer derives the deduplication identity used for view counting.
package viewer

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Prefixes distinguish how a viewer key was derived.
const (
	userPrefix  = "u:"
	guestPrefix = "g:"
)

// guestHashLen is the number of hex characters kept from the fingerprint hash.
const guestHashLen = 32

// MaxKeyLength bounds a viewer key to the width of the view ledger's
// viewer_key column. Derived keys are always well under it; only explicit
// caller-supplied keys can exceed it.
const MaxKeyLength = 64

// Resolve produces the dedup key for a viewing party. First match wins:
// an explicit caller-supplied key (trimmed), the authenticated user id,
// or a fingerprint of network origin + client agent. It is a pure function
// and always returns a non-empty string.
func Resolve(explicit string, userID uint, origin, userAgent string) string {
	if key := strings.TrimSpace(explicit); key != "" {
		return key
	}
	if userID != 0 {
		return userPrefix + strconv.FormatUint(uint64(userID), 10)
	}
	return guestPrefix + fingerprint(origin, userAgent)
}

// fingerprint hashes the request origin and client agent into a stable,
// non-reversible guest identity.
func fingerprint(origin, userAgent string) string {
	sum := sha256.Sum256([]byte(origin + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:guestHashLen]
}

// IsGuest reports whether the key was derived from a network fingerprint
// rather than an authenticated principal or an explicit caller key.
func IsGuest(key string) bool {
	return strings.HasPrefix(key, guestPrefix)
}
