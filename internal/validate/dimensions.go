package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rfqworks/rfqd/internal/rfq"
)

var (
	// 20x12x100, 20 X 12 X 100, decimal comma tolerated.
	dims3Re = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*[xX]\s*(\d+(?:[.,]\d+)?)\s*[xX]\s*(\d+(?:[.,]\d+)?)`)
	dims2Re = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*[xX]\s*(\d+(?:[.,]\d+)?)`)

	// M-codes standalone or hyphenated: "M6", "-M6".
	threadRe = regexp.MustCompile(`(?i)(?:^|[\s\-])(M\d+)(?:[\s\-]|$)`)
)

// ParseDimensions extracts width x height x length from a text snippet.
// A two-dimensional match yields a nil Length. Returns nil when the text
// contains no dimension pattern.
func ParseDimensions(text string) *rfq.Dimensions {
	if m := dims3Re.FindStringSubmatch(text); m != nil {
		w, errW := parseDim(m[1])
		h, errH := parseDim(m[2])
		l, errL := parseDim(m[3])
		if errW == nil && errH == nil && errL == nil {
			return &rfq.Dimensions{Width: w, Height: h, Length: &l}
		}
	}
	if m := dims2Re.FindStringSubmatch(text); m != nil {
		w, errW := parseDim(m[1])
		h, errH := parseDim(m[2])
		if errW == nil && errH == nil {
			return &rfq.Dimensions{Width: w, Height: h}
		}
	}
	return nil
}

func parseDim(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// ExtractThreadFeatures finds explicit thread specs (M6, M8, ...) in a text
// snippet, deduplicated, uppercased.
func ExtractThreadFeatures(text string) []rfq.Feature {
	var features []rfq.Feature
	seen := map[string]bool{}
	for _, m := range threadRe.FindAllStringSubmatch(text, -1) {
		spec := strings.ToUpper(m[1])
		if seen[spec] {
			continue
		}
		seen[spec] = true
		features = append(features, rfq.Feature{FeatureType: "thread", Spec: spec})
	}
	return features
}

// threadSize parses the nominal diameter of a thread spec: "M6" -> 6,
// "M10x1" -> 10. Returns false when no numeric part follows the M.
func threadSize(spec string) (float64, bool) {
	spec = strings.ToUpper(strings.TrimSpace(spec))
	if !strings.HasPrefix(spec, "M") {
		return 0, false
	}
	var num strings.Builder
	for _, r := range spec[1:] {
		if (r >= '0' && r <= '9') || r == '.' {
			num.WriteRune(r)
			continue
		}
		break
	}
	if num.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
