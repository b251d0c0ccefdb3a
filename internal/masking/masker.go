package masking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/rfq"
)

// recognizer is one PII pattern with its replacement token. replacement
// may reference capture groups to keep non-PII context (e.g. a "Fax:"
// label) in place.
type recognizer struct {
	entity      string
	token       string
	replacement string
	re          *regexp.Regexp
}

// Recognizer order matters: emails before phones so the digits in an email
// local part are not half-eaten by the phone pattern.
var recognizers = []recognizer{
	{
		entity: "email",
		token:  "{{EMAIL}}",
		re:     regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	},
	{
		entity: "iban",
		token:  "{{IBAN}}",
		re:     regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){3,7}(?:\s?[A-Z0-9]{1,4})?\b`),
	},
	{
		entity: "company",
		token:  "{{COMPANY}}",
		re:     regexp.MustCompile(`(?i)\b(?:Nosta\s*GmbH|NOSTA|F\.\s*Reyher|Reyher)\b`),
	},
	{
		entity: "address",
		token:  "{{ADDRESS}}",
		re:     regexp.MustCompile(`[A-Za-zäöüÄÖÜß]+(?:straße|strasse|str\.|gasse|weg|platz|allee)\s*\d{1,4}[a-zA-Z]?\s*,?\s*\d{4,5}\s+[A-Za-zäöüÄÖÜß]+`),
	},
	{
		entity:      "phone",
		token:       "{{PHONE}}",
		replacement: "${1}{{PHONE}}",
		re:          regexp.MustCompile(`(?i)((?:Telefax|Telefon|Tel|Fax|Phone)[\s.:]*)[\d\s/\-+]*\d{4,}|\b\d{3,5}[/-]\d{4,}\b`),
	},
}

// Result is the outcome of processing one document's text.
type Result struct {
	Header     rfq.Header
	MaskedText string
	// TokenMap maps header-value tokens back to the original strings, so
	// callers can restore them in output if needed.
	TokenMap map[string]string
	// Stats counts replacements per entity type. Aggregates only, never
	// values.
	Stats map[string]int
}

// Masker replaces personally identifiable information with type tokens
// before text leaves the system.
type Masker struct {
	logger *logging.Logger
}

// NewMasker creates a masker.
func NewMasker(logger *logging.Logger) *Masker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Masker{logger: logger.Named("masking")}
}

// Process extracts the document header, then masks the text with the
// extracted header values pre-masked as exact strings.
func (m *Masker) Process(text string) Result {
	header := ExtractHeader(text)
	masked, tokenMap, stats := m.Mask(text, []string{
		header.CustomerName,
		header.RFQNumber,
		header.CustomerNumber,
	})
	return Result{
		Header:     header,
		MaskedText: masked,
		TokenMap:   tokenMap,
		Stats:      stats,
	}
}

// Mask replaces PII in text with type tokens. headerValues are known exact
// strings (customer name, document numbers) replaced verbatim first, each
// with its own indexed token, before pattern recognizers run.
func (m *Masker) Mask(text string, headerValues []string) (string, map[string]string, map[string]int) {
	tokenMap := make(map[string]string)
	stats := make(map[string]int)

	for i, val := range headerValues {
		if len(val) <= 2 || !strings.Contains(text, val) {
			continue
		}
		token := fmt.Sprintf("{{HEADER_VAL_%d}}", i)
		tokenMap[token] = val
		stats["header_value"] += strings.Count(text, val)
		text = strings.ReplaceAll(text, val, token)
	}

	for _, r := range recognizers {
		matches := r.re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		stats[r.entity] += len(matches)
		replacement := r.token
		if r.replacement != "" {
			replacement = r.replacement
		}
		text = r.re.ReplaceAllString(text, replacement)
	}

	return text, tokenMap, stats
}
