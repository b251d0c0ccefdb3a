package validate

import (
	"regexp"
	"strings"
)

// validMaterials is the strict whitelist of material codes the catalog knows.
var validMaterials = map[string]bool{
	"C45":     true,
	"C45+C":   true,
	"C45K":    true,
	"42CrMo4": true,
	"1.4301":  true,
	"1.4305":  true,
	"1.4571":  true,
	"1.4404":  true,
	"1.4057":  true,
}

// materialFixes maps known-bad OCR/extraction artifacts onto correct codes.
var materialFixes = map[string]string{
	"P5K":         "C45K",
	"P5C":         "C45+C",
	"C45C":        "C45+C",
	"P85-C45K":    "C45K",
	"P885-C45C":   "C45+C",
	"P885-C45+C":  "C45+C",
	"P85-C45+C":   "C45+C",
	"P85-C45C":    "C45+C",
}

// materialPrefixes are prefixes commonly glued onto material codes by OCR.
var materialPrefixes = []string{"P885-", "P85-", "PF-", "P5", "P8"}

var c45StyleRe = regexp.MustCompile(`(?i)^C45[A-Z]?$`)

// FixMaterial auto-corrects known bad material values. It returns the input
// unchanged when no correction applies; the validator then penalizes the
// confidence score instead.
func FixMaterial(material string) string {
	if material == "" {
		return material
	}

	if fixed, ok := materialFixes[material]; ok {
		return fixed
	}
	if validMaterials[material] {
		return material
	}

	cleaned := material
	for _, prefix := range materialPrefixes {
		if strings.HasPrefix(strings.ToUpper(cleaned), strings.ToUpper(prefix)) {
			cleaned = cleaned[len(prefix):]
			break
		}
	}
	if validMaterials[cleaned] {
		return cleaned
	}

	if c45StyleRe.MatchString(cleaned) {
		switch strings.ToUpper(cleaned) {
		case "C45C":
			return "C45+C"
		case "C45K":
			return "C45K"
		}
	}

	return material
}

// MaterialValid reports whether every slash-separated part of the material
// code is on the whitelist.
func MaterialValid(material string) bool {
	if material == "" {
		return true
	}
	for _, part := range strings.Split(material, "/") {
		if !validMaterials[strings.TrimSpace(part)] {
			return false
		}
	}
	return true
}
