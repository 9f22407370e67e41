package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// plainText strips markup from instructor-written text. The policy escapes entities on
// output, so they are decoded again: feedback and notes are plain text, and Canvas
// renders comment text verbatim.
func plainText(policy *bluemonday.Policy, content string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(content)))
}
