package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNameDefaults(t *testing.T) {
	assert.Equal(t, DefaultName, DisplayName(""))
	assert.Equal(t, "Alice", DisplayName("Alice"))
}

func TestDisplayNameTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("あ", MaxDisplayNameLen+5)
	got := DisplayName(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxDisplayNameLen, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("あ", MaxDisplayNameLen), got)
}
