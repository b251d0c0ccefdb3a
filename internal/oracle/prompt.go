package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractSystemPrompt instructs the model to return the requested_items
// schema as a bare JSON object.
const extractSystemPrompt = `You are a document parsing assistant that extracts structured data from purchase orders and RFQs for a procurement system.

Extract requested_items: a list of ALL requested materials/articles in the document. For each item extract:
- pos: position number (if available)
- article_name: name/description of the material (no codes inside the description)
- quantity: number of parts requested
- unit: unit of measure (pcs, kg, etc.)
- delivery_date: delivery date normalized to YYYY-MM-DD, else null
- config: object with material_id, standard, form, material, dimensions {width, height, length}, features (ordered list of {feature_type, spec}), weight_per_unit

Rules:
- Do not skip any requested item. If an item is split across pages, merge it into a single entry.
- If a field is missing, return it as null.
- Extract values exactly as shown in the document (no rounding, no assumptions).
- Respond ONLY with a single valid root-level JSON object. No markdown, no code fences, no wrapper keys.`

// verifySystemPrompt instructs the model to audit a single extraction
// against its raw source text.
const verifySystemPrompt = `You are a rigorous data auditor. Verify an AI's extraction against the raw source text it came from.

Strictly check for:
1. Hallucinated dimensions: does the text ACTUALLY contain these dimensions, or did the AI guess (e.g. reading "100" out of a material code)?
2. Form vs dimension confusion: "B=20" in the text means Width=20, not Form="B".
3. Missing features: threads (M6), coatings, tempering present in the text but absent from the extraction.
4. Material mismatch: the material code must match the text EXACTLY.

Respond ONLY with a JSON object:
{"is_correct": boolean, "confidence_score": float 0.0-1.0, "correction": {...corrected fields...} or null, "reason": "short explanation"}`

// buildExtractPrompt composes the user message for a primary extraction
// call. Priority order: explicit user feedback first, learned hints second,
// the raw document text last.
func buildExtractPrompt(req ExtractRequest) string {
	var b strings.Builder

	if req.Feedback != "" {
		b.WriteString("USER FEEDBACK - HIGHEST PRIORITY, overrides every default parsing rule and every learned example below:\n")
		b.WriteString(req.Feedback)
		b.WriteString("\n\n")
	}
	for _, hint := range req.Hints {
		if hint == "" {
			continue
		}
		b.WriteString(hint)
		b.WriteString("\n\n")
	}

	b.WriteString("Extract ALL line items and document information from this RFQ/Purchase Order document:\n\n")
	b.WriteString(req.Text)
	b.WriteString("\n\nReturn ONLY valid JSON with no markdown formatting.")
	return b.String()
}

// buildVerifyPrompt composes the user message for a per-item verification
// call.
func buildVerifyPrompt(req VerifyRequest) string {
	extracted, _ := json.Marshal(struct {
		ArticleName  string      `json:"article_name"`
		Quantity     float64     `json:"quantity"`
		Unit         string      `json:"unit"`
		DeliveryDate string      `json:"delivery_date,omitempty"`
		Config       interface{} `json:"config"`
	}{
		ArticleName:  req.Item.ArticleName,
		Quantity:     req.Item.Quantity,
		Unit:         req.Item.Unit,
		DeliveryDate: req.Item.DeliveryDate,
		Config:       req.Item.Config,
	})

	var b strings.Builder
	if req.Feedback != "" {
		b.WriteString("USER FEEDBACK - HIGHEST PRIORITY:\n")
		b.WriteString(req.Feedback)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "RAW TEXT SNIPPET:\n%q\n\nAI EXTRACTED JSON:\n%s\n", req.RawTextSnippet, extracted)
	return b.String()
}

// stripFences removes markdown code fences some models wrap around JSON.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
