// Package masking extracts document-level header metadata and masks PII in
// raw document text before it is sent to the extraction oracle.
package masking

import (
	"regexp"
	"strings"

	"github.com/rfqworks/rfqd/internal/rfq"
)

// supplierName is fixed: the system always processes documents addressed to
// this supplier.
const supplierName = "Nosta GmbH"

var (
	spaceRe = regexp.MustCompile(`[ \t]+`)

	rfqNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Nr\.|Nummer|Anfrage)\s*(\d{5,})`),
		regexp.MustCompile(`(?i)<NAnfrage\s+(\d+)\s*>`),
		regexp.MustCompile(`(?i)ANFRAGE\s+Nr\.?\s*(\d+)`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Datum\s*[:.]?\s*(\d{2}[./]\d{2}[./]\d{4})`),
		regexp.MustCompile(`(?i)Date\s*[:.]?\s*(\d{4}-\d{2}-\d{2})`),
	}

	customerNumberRe = regexp.MustCompile(`(?i)Lieferanten-?Nr\.?\s*[:.]?\s*(\d+)`)

	customerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:F\.\s*)?REYHER\b`),
		regexp.MustCompile(`(?i)([A-Z0-9äöüÄÖÜß][A-Za-z0-9äöüÄÖÜß.\- ]+)\s+(GmbH\s*&\s*Co\.?\s*(?:KG|OHG))`),
		regexp.MustCompile(`(?i)([A-Z0-9äöüÄÖÜß][A-Za-z0-9äöüÄÖÜß.\- ]+)\s+(GmbH|AG|Inc|LLC|Ltd)`),
	}

	pageArtifactRe  = regexp.MustCompile(`(?i)^Page\s+\d+\s*-*\s*`)
	seiteArtifactRe = regexp.MustCompile(`(?i)^Seite\s+\d+\s*-*\s*`)

	purchaseOrderRe = regexp.MustCompile(`(?i)BESTELLUNG|ORDER|PO\b`)
)

// ExtractHeader pulls document-level metadata out of raw text. Fields that
// cannot be found are left empty; extraction never fails.
func ExtractHeader(text string) rfq.Header {
	normalized := spaceRe.ReplaceAllString(text, " ")

	header := rfq.Header{
		SupplierName: supplierName,
		DocumentType: "RFQ",
	}

	for _, re := range rfqNumberPatterns {
		if m := re.FindStringSubmatch(normalized); m != nil {
			header.RFQNumber = m[1]
			break
		}
	}
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(normalized); m != nil {
			header.DocumentDate = m[1]
			break
		}
	}
	if m := customerNumberRe.FindStringSubmatch(normalized); m != nil {
		header.CustomerNumber = m[1]
	}
	header.CustomerName = findCustomerName(normalized)
	if purchaseOrderRe.MatchString(normalized) {
		header.DocumentType = "Purchase Order"
	}

	return header
}

// findCustomerName matches company-name patterns, skipping the supplier's
// own name and cleaning page-break artifacts swallowed by OCR.
func findCustomerName(text string) string {
	for _, re := range customerPatterns {
		for _, m := range re.FindAllString(text, -1) {
			name := strings.TrimSpace(m)
			if strings.Contains(strings.ToLower(name), "nosta") {
				continue
			}
			if len(name) < 3 {
				continue
			}
			name = pageArtifactRe.ReplaceAllString(name, "")
			name = seiteArtifactRe.ReplaceAllString(name, "")
			return strings.TrimSpace(name)
		}
	}
	return ""
}
