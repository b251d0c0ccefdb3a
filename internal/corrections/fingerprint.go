package corrections

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintLen is the hex length of a correction fingerprint.
const fingerprintLen = 16

// Normalize collapses whitespace runs to single spaces, strips carriage
// returns, lowercases, and trims. Two texts differing only in formatting
// normalize identically.
func Normalize(text string) string {
	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}

// Fingerprint derives the stable key for a correction from its raw snippet.
// Pure function of the normalized snippet: identical snippets with different
// whitespace or line endings share a fingerprint.
func Fingerprint(rawTextSnippet string) string {
	sum := sha256.Sum256([]byte(Normalize(rawTextSnippet)))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// KeywordPrints returns the subset of known supplier/format keywords present
// in the text, lowercased, in the keyword list's order. These identify
// near-duplicate document layouts for correction retrieval.
func KeywordPrints(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var prints []string
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			prints = append(prints, strings.ToLower(k))
		}
	}
	return prints
}
