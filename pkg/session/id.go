package session

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Session identifiers are 32 lowercase hex characters. Anything else is
// rejected before it ever reaches the store, so attacker-controlled
// malformed keys never turn into lookups.
var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewID generates a fresh session identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidID reports whether id has the expected session identifier format.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
