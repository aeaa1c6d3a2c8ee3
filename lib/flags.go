package lib

import (
	"strings"

	"github.com/emersion/go-imap"
)

func StripRecentFlag(source []string) []string {
	output := make([]string, 0, len(source))
	for _, flag := range source {
		if flag == imap.RecentFlag {
			continue
		}
		output = append(output, flag)
	}
	return output
}

// JoinFlags serializes a flag set into a single column value.
func JoinFlags(flags []string) string {
	return strings.Join(flags, " ")
}

func SplitFlags(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Fields(value)
}

// IntersectFlags reports whether the two flag sets share at least one flag.
// Comparison is case-insensitive, the way IMAP servers treat system flags.
func IntersectFlags(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, flag := range a {
		set[strings.ToLower(flag)] = struct{}{}
	}
	for _, flag := range b {
		if _, ok := set[strings.ToLower(flag)]; ok {
			return true
		}
	}
	return false
}
