package security

import (
	"crypto/subtle"
	"strings"
)

// ValidAPIToken compares a presented bearer token against the configured
// statement API token in constant time. An empty configured token rejects
// everything.
func ValidAPIToken(configured, presented string) bool {
	presented = strings.TrimPrefix(strings.TrimSpace(presented), "Bearer ")
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
