package shared

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalises customer-entered site, affiliate and business
// names before storage or comparison. Hangul input arrives in both composed
// and decomposed forms depending on the client OS; NFC keeps lookups by name
// stable.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
