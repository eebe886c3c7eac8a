// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Lesson content (resume, references, justification) may carry simple
// formatting and is run through Sanitize. Chat messages, comments and review
// feedback are plain text and go through PlainText.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich   = newRichPolicy()
	strict = bluemonday.StrictPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "mark")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("class").OnElements("table", "tr", "td", "th")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Sanitize keeps safe formatting markup and strips scripts, event handlers
// and javascript: links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return rich.Sanitize(s)
}

// PlainText removes all markup and trims surrounding whitespace.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
