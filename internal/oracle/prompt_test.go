package oracle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfqworks/rfqd/internal/rfq"
)

func itemNamed(name string) rfq.RequestedItem {
	return rfq.RequestedItem{
		ArticleName: name,
		Quantity:    10,
		Unit:        "pcs",
		Config:      rfq.ItemConfig{Material: "C45"},
	}
}

func TestBuildExtractPromptPriorityOrder(t *testing.T) {
	prompt := buildExtractPrompt(ExtractRequest{
		Text:     "Pos 1 Passfeder 100 pcs",
		Hints:    []string{"LEARNED CORRECTIONS:\nexample hint", "COLUMN LAYOUT:\nPos | Menge"},
		Feedback: "treat VPE as packaging size, not quantity",
	})

	fbIdx := strings.Index(prompt, "treat VPE as packaging size")
	hintIdx := strings.Index(prompt, "LEARNED CORRECTIONS")
	colIdx := strings.Index(prompt, "COLUMN LAYOUT")
	textIdx := strings.Index(prompt, "Pos 1 Passfeder")

	require.GreaterOrEqual(t, fbIdx, 0)
	require.GreaterOrEqual(t, hintIdx, 0)
	require.GreaterOrEqual(t, colIdx, 0)
	require.GreaterOrEqual(t, textIdx, 0)

	assert.Less(t, fbIdx, hintIdx, "feedback must come before hints")
	assert.Less(t, hintIdx, colIdx, "hints keep their given order")
	assert.Less(t, colIdx, textIdx, "document text comes last")
	assert.Contains(t, prompt, "HIGHEST PRIORITY")
}

func TestBuildExtractPromptWithoutFeedback(t *testing.T) {
	prompt := buildExtractPrompt(ExtractRequest{Text: "some document"})
	assert.NotContains(t, prompt, "USER FEEDBACK")
	assert.Contains(t, prompt, "some document")
}

func TestBuildExtractPromptSkipsEmptyHints(t *testing.T) {
	prompt := buildExtractPrompt(ExtractRequest{Text: "doc", Hints: []string{"", "real hint"}})
	assert.Contains(t, prompt, "real hint")
	assert.NotContains(t, prompt, "\n\n\n\n")
}

func TestBuildVerifyPromptIncludesSnippetAndItem(t *testing.T) {
	prompt := buildVerifyPrompt(VerifyRequest{
		RawTextSnippet: "Pos 1 PF-DIN6885-C45K 100 Stk",
		Item:           itemNamed("Passfeder DIN 6885"),
	})

	assert.Contains(t, prompt, "RAW TEXT SNIPPET")
	assert.Contains(t, prompt, "PF-DIN6885-C45K")
	assert.Contains(t, prompt, `"article_name":"Passfeder DIN 6885"`)
	assert.Contains(t, prompt, `"material":"C45"`)
	assert.NotContains(t, prompt, "metadata", "verifier must not see internal metadata")
}

func TestBuildVerifyPromptFeedbackFirst(t *testing.T) {
	prompt := buildVerifyPrompt(VerifyRequest{
		RawTextSnippet: "snippet",
		Item:           itemNamed("x"),
		Feedback:       "dimensions are in inches",
	})
	assert.Less(t, strings.Index(prompt, "dimensions are in inches"), strings.Index(prompt, "RAW TEXT SNIPPET"))
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"  \n```json\n{\"a\":1}\n```\n ": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripFences(in))
	}
}
