package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Sechska...", truncate("Sechskantschraube", 10))

	// Umlauts must not be split mid-sequence.
	got := truncate("Schräubchen für Gewächshäuser", 12)
	assert.Equal(t, "Schräubch...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestJoinOrDash(t *testing.T) {
	assert.Equal(t, "-", joinOrDash(nil))
	assert.Equal(t, "würth,nosta", joinOrDash([]string{"würth", "nosta"}))
}
