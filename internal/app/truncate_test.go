package app

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate_KeepsRuneBoundaries(t *testing.T) {
	// "é" is two bytes and straddles the 512-byte cut
	s := strings.Repeat("a", 511) + "é…"
	got := truncate(s, 512)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 511), got)

	// "…" is three bytes; cutting inside it drops the whole rune
	s = strings.Repeat("a", 510) + "…"
	got = truncate(s, 512)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 510)

	assert.Equal(t, "short", truncate("short", 512))
	assert.Equal(t, "ab", truncate("abc", 2))
}
