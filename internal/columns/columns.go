// Package columns locates the line-item table header row in OCR text and
// turns it into a column-mapping hint for the extraction prompt. OCR tables
// lose their grid, so telling the oracle which column means what (and which
// to ignore) prevents the classic VPE-as-quantity misread.
package columns

import (
	"fmt"
	"regexp"
	"strings"
)

type priority int

const (
	low priority = iota
	medium
	high
)

type columnInfo struct {
	label    string
	priority priority
}

// columnKeywords maps raw header tokens (German and English) to semantic
// labels the oracle understands.
var columnKeywords = map[string]columnInfo{
	// Quantity (use this)
	"menge":        {label: "QUANTITY (use this for quantity)", priority: high},
	"qty":          {label: "QUANTITY (use this for quantity)", priority: high},
	"quantity":     {label: "QUANTITY (use this for quantity)", priority: high},
	"bestellmenge": {label: "QUANTITY (use this for quantity)", priority: high},
	"stück":        {label: "QUANTITY (use this for quantity)", priority: high},
	"stk":          {label: "QUANTITY (use this for quantity)", priority: high},

	// Packaging unit (ignore for quantity)
	"vpe":                {label: "PACKAGING UNIT (ignore for quantity)", priority: high},
	"verpackungseinheit": {label: "PACKAGING UNIT (ignore for quantity)", priority: high},
	"pack":               {label: "PACKAGING UNIT (ignore for quantity)", priority: high},

	// Position
	"pos":      {label: "POSITION NUMBER", priority: medium},
	"position": {label: "POSITION NUMBER", priority: medium},
	"lfd":      {label: "POSITION NUMBER", priority: medium},

	// Material / article
	"material":    {label: "MATERIAL DESCRIPTION", priority: medium},
	"materialnr":  {label: "MATERIAL NUMBER", priority: medium},
	"artikel":     {label: "ARTICLE NAME", priority: medium},
	"artikelnr":   {label: "ARTICLE NUMBER", priority: medium},
	"bezeichnung": {label: "DESCRIPTION", priority: medium},

	// Price
	"preis":        {label: "UNIT PRICE", priority: medium},
	"price":        {label: "UNIT PRICE", priority: medium},
	"einzelpreis":  {label: "UNIT PRICE", priority: medium},
	"preiseinheit": {label: "PRICE UNIT (per 100, per 1000 etc)", priority: medium},
	"pe":           {label: "PRICE UNIT", priority: medium},

	// Totals
	"nettowert":   {label: "NET VALUE (total line amount)", priority: medium},
	"gesamtpreis": {label: "TOTAL PRICE", priority: medium},
	"betrag":      {label: "AMOUNT", priority: medium},
	"netto":       {label: "NET VALUE", priority: medium},

	// Delivery
	"liefertermin":         {label: "DELIVERY DATE", priority: medium},
	"lieferdatum":          {label: "DELIVERY DATE", priority: medium},
	"termin":               {label: "DELIVERY DATE", priority: medium},
	"bereitstellungsdatum": {label: "DELIVERY DATE", priority: medium},

	// Unit
	"einheit": {label: "UNIT OF MEASURE", priority: low},
	"me":      {label: "UNIT OF MEASURE", priority: low},
	"eur":     {label: "CURRENCY", priority: low},
}

var quantityKeywords = map[string]bool{
	"menge": true, "qty": true, "quantity": true,
	"bestellmenge": true, "stück": true, "stk": true,
}

var packagingKeywords = map[string]bool{
	"vpe": true, "verpackungseinheit": true,
}

var priceUnitKeywords = map[string]bool{
	"preiseinheit": true, "pe": true,
}

// Headers sit near the top of a document; scanning further just finds
// footer noise.
const headerScanLines = 30

// Header rows need at least two keyword hits before the hint is trusted.
const minHeaderScore = 2

type match struct {
	keyword  string
	label    string
	priority priority
}

var delimiterRe = regexp.MustCompile(`[\t|]+|\s{2,}`)

// Detect scans the first lines of text for the table header row and returns
// a prompt hint describing the detected column mapping. Returns "" when no
// header row scores high enough.
func Detect(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	if len(lines) > headerScanLines {
		lines = lines[:headerScanLines]
	}

	var bestLine string
	var bestScore int
	var bestMatches []match

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 5 {
			continue
		}
		matches := findKeywords(line)
		score := len(matches)
		for _, m := range matches {
			if m.priority == high {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			bestLine = line
			bestMatches = matches
		}
	}

	if bestScore < minHeaderScore {
		return ""
	}
	return buildHint(bestLine, bestMatches)
}

func buildHint(headerLine string, matches []match) string {
	var b strings.Builder
	b.WriteString("DETECTED COLUMN HEADERS FROM DOCUMENT:\n")
	fmt.Fprintf(&b, "Header row: %q\n", headerLine)
	b.WriteString("Column mapping:\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "  - %q = %s\n", m.keyword, m.label)
	}

	var hasQuantity, hasPackaging, hasPriceUnit bool
	for _, m := range matches {
		key := cleanToken(strings.ToLower(m.keyword))
		hasQuantity = hasQuantity || quantityKeywords[key]
		hasPackaging = hasPackaging || packagingKeywords[key]
		hasPriceUnit = hasPriceUnit || priceUnitKeywords[key]
	}

	switch {
	case hasPackaging && hasQuantity:
		b.WriteString("\nCRITICAL: This document has BOTH a packaging (VPE) and a quantity (Menge) column.\n")
		b.WriteString("  - Use the Menge column for quantity.\n")
		b.WriteString("  - VPE is the packaging unit, IGNORE it for quantity.\n")
	case hasPackaging:
		b.WriteString("\nWARNING: Only a VPE column found. Look for a separate quantity/Menge column.\n")
	}
	if hasPriceUnit {
		b.WriteString("  - Preiseinheit/PE means price per X units (e.g. per 100). Use this context.\n")
	}
	return b.String()
}

// findKeywords matches known column tokens in one line, deduplicating by
// label so "Pos" and "Position" count once.
func findKeywords(line string) []match {
	words := delimiterRe.Split(strings.ToLower(line), -1)

	var matches []match
	seen := make(map[string]bool)
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		info, ok := columnKeywords[cleanToken(word)]
		if !ok || seen[info.label] {
			continue
		}
		matches = append(matches, match{keyword: word, label: info.label, priority: info.priority})
		seen[info.label] = true
	}
	return matches
}

func cleanToken(word string) string {
	return strings.Trim(word, `.,:;/\`)
}
