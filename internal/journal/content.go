package journal

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ExcerptLength is the rune length of entry excerpts.
const ExcerptLength = 40

// cleaner strips markup from entry text. bluemonday escapes what it
// keeps, so the result is unescaped back to plain text.
type cleaner struct {
	policy *bluemonday.Policy
}

func newCleaner() cleaner {
	return cleaner{policy: bluemonday.StrictPolicy()}
}

// Clean drops invalid UTF-8 and every HTML tag from s.
func (c cleaner) Clean(s string) string {
	s = strings.ToValidUTF8(s, "")
	return html.UnescapeString(c.policy.Sanitize(s))
}

// Excerpt returns the first ExcerptLength runes of s.
func Excerpt(s string) string {
	s = strings.ToValidUTF8(s, "")
	n := 0
	for i := range s {
		if n == ExcerptLength {
			return s[:i]
		}
		n++
	}
	return s
}
