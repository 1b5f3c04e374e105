// Package document loads the CV source text and applies the context
// truncation budget.
package document

import (
	"os"
	"strings"
)

// Source holds the CV text for the lifetime of the process. A missing or
// unreadable file yields an empty Source; the ask pipeline reports that
// as a configuration error on every request rather than failing startup.
type Source struct {
	text     string
	maxChars int
}

// Load reads the document at path once. maxChars is the per-request
// context budget in characters.
func Load(path string, maxChars int) *Source {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Source{maxChars: maxChars}
	}
	return &Source{text: string(data), maxChars: maxChars}
}

// NewSource wraps already-loaded text, mainly for tests.
func NewSource(text string, maxChars int) *Source {
	return &Source{text: text, maxChars: maxChars}
}

// Empty reports whether the document is missing or blank.
func (s *Source) Empty() bool {
	return strings.TrimSpace(s.text) == ""
}

// Context returns the document truncated to the first maxChars
// characters — a fixed prefix, not a summary.
func (s *Source) Context() string {
	runes := []rune(s.text)
	if len(runes) <= s.maxChars {
		return s.text
	}
	return string(runes[:s.maxChars])
}

// Len returns the document length in characters.
func (s *Source) Len() int {
	return len([]rune(s.text))
}
