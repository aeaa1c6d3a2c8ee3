package mailbox

import "strings"

// Contact is an address-book row loaded en masse when the account opens.
type Contact struct {
	Email             string
	RealName          string
	HighestImportance int
	NormalizedEmail   string
	Flags             []string
}

// NormalizeEmail lowercases an address for case-insensitive matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
