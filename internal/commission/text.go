package commission

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold returns a case-folded, trimmed copy of s for substring matching.
// A fresh Caser is built per call since Casers are not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// containsAny reports whether folded s contains any of the (already folded) needles.
func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
