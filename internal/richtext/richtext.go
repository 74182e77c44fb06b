// Package richtext turns admin-entered descriptions, which may contain
// pasted HTML, into plain text for excerpts and the search index.
package richtext

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// PlainText returns the visible text of an HTML fragment with whitespace
// collapsed. Text that is not HTML comes back unchanged apart from spacing.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	// Block elements would otherwise glue neighbouring words together.
	doc.Find("p, br, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return collapse(doc.Text())
}

// Excerpt returns at most max runes of plain text, cut on a word boundary
// and suffixed with an ellipsis when shortened.
func Excerpt(fragment string, max int) string {
	text := PlainText(fragment)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
