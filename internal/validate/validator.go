// Package validate implements the deterministic rule validator.
//
// The validator runs after the primary extraction pass. It locates each
// item's raw source line, trusts strict regex matches over the oracle for
// dimensions, thread features and materials, and computes a rule confidence
// score in [0,1] that downstream code compares against the configured
// acceptance threshold and verification floor.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/rfq"
)

// blindScore is assigned when no source text exists to validate against.
const blindScore = 0.5

// Standard/catalog naming convention, e.g. "DIN6885", "DIN 6885", "ISO 4762".
var standardRe = regexp.MustCompile(`(?i)^(DIN|EN|ISO)\s?\d+`)

// Validator scores extracted items against deterministic rules.
type Validator struct {
	cfg    config.ValidationConfig
	logger *logging.Logger
}

// New creates a Validator. Thresholds come from configuration so operators
// can tune them without a redeploy.
func New(cfg config.ValidationConfig, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{cfg: cfg, logger: logger.Named("validator")}
}

// AcceptThreshold returns the configured acceptance threshold.
func (v *Validator) AcceptThreshold() float64 { return v.cfg.AcceptThreshold }

// VerifyFloor returns the configured verification floor.
func (v *Validator) VerifyFloor() float64 { return v.cfg.VerifyFloor }

// Score computes the rule confidence score for an item against its raw text
// snippet. Pure: no side effects, no mutation of the item.
func (v *Validator) Score(item rfq.RequestedItem, snippet string) float64 {
	score, _ := v.scoreWithIssues(item, snippet)
	return score
}

func (v *Validator) scoreWithIssues(item rfq.RequestedItem, snippet string) (float64, []string) {
	var issues []string
	score := 1.0

	// Required-field completeness. A missing core field on its own drops the
	// item below the verification floor: the verifier cannot invent a unit or
	// a quantity, so these go straight to manual review.
	if strings.TrimSpace(item.ArticleName) == "" {
		score -= 0.6
		issues = append(issues, "article_name missing")
	}
	if strings.TrimSpace(item.Unit) == "" {
		score -= 0.6
		issues = append(issues, "unit missing")
	}
	if item.Quantity <= 0 {
		score -= 0.6
		issues = append(issues, "quantity missing or non-positive")
	}

	if snippet == "" {
		// Flying blind: nothing to cross-check against.
		return clamp(min(score, blindScore)), issues
	}

	// Dimensions present in the text but missed in the extraction.
	if ParseDimensions(snippet) != nil && item.Config.Dimensions == nil {
		score -= 0.3
		issues = append(issues, "dimensions found in text but missing in extraction")
	}

	// Thread features present in the text but missed in the extraction.
	for _, tf := range ExtractThreadFeatures(snippet) {
		if !hasFeature(item.Config.Features, tf.Spec) {
			score -= 0.2
			issues = append(issues, fmt.Sprintf("feature %s missed", tf.Spec))
		}
	}

	// Single-letter form codes that look like dimension labels, e.g.
	// Form="B" while the text reads "B=20".
	form := item.Config.Form
	if len(form) == 1 && strings.Contains(strings.ReplaceAll(snippet, " ", ""), form+"=") {
		score -= 0.4
		issues = append(issues, fmt.Sprintf("form %q matches dimension label pattern", form))
	}

	// Material whitelist.
	if !MaterialValid(item.Config.Material) {
		score -= 0.3
		issues = append(issues, fmt.Sprintf("invalid material: %s", item.Config.Material))
	}

	// Thread codes outside the plausible M1-M21 range.
	for _, feat := range item.Config.Features {
		if size, ok := threadSize(feat.Spec); ok && (size < 1 || size > 21) {
			score -= 0.3
			issues = append(issues, fmt.Sprintf("thread out of range M1-M21: %s", feat.Spec))
		}
	}

	// "Form" keyword present in the text but no form extracted.
	if strings.Contains(snippet, "Form") && form == "" {
		score -= 0.1
		issues = append(issues, "form keyword present but not extracted")
	}

	// Standard field that matches no known catalog convention.
	if std := item.Config.Standard; std != "" && !standardRe.MatchString(std) {
		score -= 0.1
		issues = append(issues, fmt.Sprintf("standard %q matches no catalog convention", std))
	}

	return clamp(score), issues
}

// Annotate locates each item's raw source line, applies deterministic
// fix-ups (dimensions, thread features, materials), and records the snippet
// and rule confidence score in the item metadata.
//
// nativeText is preferred when long enough to be a real text layer;
// otherwise the OCR text is scanned.
func (v *Validator) Annotate(items []rfq.RequestedItem, nativeText, ocrText string) []rfq.RequestedItem {
	sourceText := ocrText
	if len(strings.TrimSpace(nativeText)) > 20 {
		sourceText = nativeText
	}
	sourceLines := strings.Split(sourceText, "\n")

	for i := range items {
		item := &items[i]

		snippet := findSourceLine(sourceLines, item.Pos, item.ArticleName)
		if snippet == "" {
			snippet = item.ArticleName
		}
		item.Metadata.RawTextSnippet = snippet

		if snippet != "" {
			v.fixItem(item, snippet)
		}

		score, issues := v.scoreWithIssues(*item, snippet)
		item.Metadata.RuleConfidenceScore = score
		if len(issues) > 0 {
			v.logger.Info("confidence reduced",
				zap.Int("pos", item.Pos),
				zap.Float64("score", score),
				zap.Strings("issues", issues))
		}
	}
	return items
}

// fixItem overrides oracle output with strict regex evidence from the source
// line. Regex wins over the model for dimensions and thread features.
func (v *Validator) fixItem(item *rfq.RequestedItem, snippet string) {
	if dims := ParseDimensions(snippet); dims != nil && dims.Length != nil {
		item.Config.Dimensions = dims
	}

	for _, sf := range ExtractThreadFeatures(snippet) {
		if !hasFeature(item.Config.Features, sf.Spec) {
			item.Config.Features = append(item.Config.Features, sf)
		}
	}

	if raw := item.Config.Material; raw != "" {
		if fixed := FixMaterial(raw); fixed != raw {
			item.Config.Material = fixed
			if strings.Contains(item.ArticleName, raw) {
				item.ArticleName = strings.ReplaceAll(item.ArticleName, raw, fixed)
			}
			item.Metadata.MaterialAutoCorrected = raw + " -> " + fixed
			v.logger.Info("material auto-corrected",
				zap.Int("pos", item.Pos),
				zap.String("from", raw),
				zap.String("to", fixed))
		}
	}
}

// findSourceLine locates the raw document line for an item, first by
// position-number prefix, then by significant parts of the article name.
func findSourceLine(lines []string, pos int, articleName string) string {
	if pos > 0 {
		posRe := regexp.MustCompile(fmt.Sprintf(`^\s*%d\s+`, pos))
		for _, line := range lines {
			if posRe.MatchString(line) {
				return line
			}
		}
	}

	if articleName != "" {
		var significant []string
		for _, part := range strings.Split(articleName, "-") {
			if len(part) > 3 {
				significant = append(significant, part)
			}
		}
		if len(significant) >= 2 {
			for _, line := range lines {
				if containsAll(line, significant) {
					return line
				}
			}
		}
	}
	return ""
}

func containsAll(line string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(line, p) {
			return false
		}
	}
	return true
}

func hasFeature(features []rfq.Feature, spec string) bool {
	for _, f := range features {
		if f.Spec == spec {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
