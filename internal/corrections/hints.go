package corrections

import (
	"fmt"
	"strings"
)

// HintBlock renders corrections into the few-shot prompt block injected into
// extraction requests. At most max corrections are used (newest first, as
// returned by Matches); corrections with the same normalized snippet count
// once. Returns "" when there is nothing to inject.
func HintBlock(matches []Correction, max int) string {
	if len(matches) == 0 || max <= 0 {
		return ""
	}

	seen := make(map[string]struct{}, max)
	var b strings.Builder
	n := 0
	for _, c := range matches {
		if n >= max {
			break
		}
		key := Normalize(c.RawTextSnippet)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		n++
		fmt.Fprintf(&b, "\nExample %d:\nRAW TEXT: %s\nCORRECT OUTPUT: %s\n",
			n, c.RawTextSnippet, string(c.CorrectJSON))
	}
	if n == 0 {
		return ""
	}
	return "LEARNED CORRECTIONS (review these examples for this document format):\n" + b.String()
}
