package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// plainText strips markup from user-entered free text. Comments, notification
// messages and catalog labels are rendered by clients and into transcripts, so no
// tag survives; entities are decoded back so "A & B" stays readable.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
