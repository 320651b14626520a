// Package scanner lexes note text for media markers of the form
// <!-- TYPE: query --> or <!-- TYPE: query | alt text -->.
package scanner

import (
	"regexp"
	"strings"

	"github.com/starford/othala/internal/models"
)

// candidateRe matches any uppercase-keyword comment. Kind validation and
// query checks happen afterwards so malformed candidates can be reported
// instead of silently ignored.
var candidateRe = regexp.MustCompile(`<!--\s*([A-Z][A-Z0-9]*)\s*:\s*([^>]*?)\s*-->`)

// Warning describes a comment that looked like a marker but cannot be
// resolved. Warnings are non-fatal; scanning continues past them.
type Warning struct {
	Raw    string
	Start  int
	Reason string
}

// Scan extracts all well-formed markers from text in left-to-right order.
// Marker spans are strictly ascending and never overlap, so the caller can
// rebuild the text by walking gaps and spans sequentially.
func Scan(text string) ([]models.Marker, []Warning) {
	var markers []models.Marker
	var warnings []Warning
	prevEnd := 0

	for _, loc := range candidateRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		keyword := text[loc[2]:loc[3]]
		inner := text[loc[4]:loc[5]]

		kind, ok := models.KindFromKeyword(keyword)
		if !ok {
			warnings = append(warnings, Warning{
				Raw:    text[start:end],
				Start:  start,
				Reason: "unknown marker keyword: " + keyword,
			})
			continue
		}

		query, alt := splitAlt(inner)
		if query == "" {
			warnings = append(warnings, Warning{
				Raw:    text[start:end],
				Start:  start,
				Reason: "empty query",
			})
			continue
		}

		m := models.Marker{
			Kind:  kind,
			Query: query,
			Alt:   alt,
			Start: start,
			End:   end,
		}

		// A marker wrapped in matching quotes (inside a frontmatter
		// value) absorbs the quotes into its span so the replacement
		// can stay quoted. A quote already absorbed by the previous
		// marker cannot be claimed again, or the spans would overlap.
		if q, ok := surroundingQuote(text, start, end); ok && start-1 >= prevEnd {
			m.Quoted = true
			m.Quote = q
			m.Start--
			m.End++
		}

		markers = append(markers, m)
		prevEnd = m.End
	}

	return markers, warnings
}

// splitAlt separates "query | alt" at the first pipe, trimming both sides.
func splitAlt(inner string) (query, alt string) {
	if i := strings.IndexByte(inner, '|'); i >= 0 {
		return strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+1:])
	}
	return strings.TrimSpace(inner), ""
}

// surroundingQuote reports the quote character when text[start:end] is
// wrapped in a matching pair of single or double quotes.
func surroundingQuote(text string, start, end int) (byte, bool) {
	if start == 0 || end >= len(text) {
		return 0, false
	}
	q := text[start-1]
	if (q == '"' || q == '\'') && text[end] == q {
		return q, true
	}
	return 0, false
}
