package common

import "strings"

// ThreadKey derives the deterministic key of a two-party conversation from
// the unordered pair of participant ids. Both parties, and the server,
// compute the same key regardless of argument order.
func ThreadKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, ":")
}
