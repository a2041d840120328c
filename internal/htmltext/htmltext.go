// Package htmltext reduces user-submitted markup to plain text before it is
// stored in contract state.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips tags, drops script/style bodies and collapses whitespace.
// Input without markup comes back trimmed and otherwise unchanged.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style, noscript, iframe").Remove()

	// block elements would otherwise glue neighbouring words together
	doc.Find("br, p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Snippet is PlainText cut to at most n runes.
func Snippet(s string, n int) string {
	text := PlainText(s)
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}
	return strings.TrimSpace(string(r[:n]))
}
