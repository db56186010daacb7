package utils

import (
	"regexp"
	"strings"
)

// ValidateUsername checks if username contains only allowed characters
// Returns true if valid
func ValidateUsername(username string) bool {
	// Allow alphanumeric, underscores, hyphens. 3-30 characters
	re := regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	return re.MatchString(username)
}

// NormalizeWhitespace collapses runs of whitespace into single spaces
// Used before feeding text to the toxicity classifier
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
