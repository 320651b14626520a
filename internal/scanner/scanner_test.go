package scanner

import (
	"strings"
	"testing"

	"github.com/starford/othala/internal/models"
)

func TestScan_SingleMarker(t *testing.T) {
	text := "A\n<!-- IMAGE: red fox -->\nB"
	markers, warnings := Scan(text)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(markers) != 1 {
		t.Fatalf("len(markers) = %d, want 1", len(markers))
	}
	m := markers[0]
	if m.Kind != models.KindImage || m.Query != "red fox" || m.Alt != "" {
		t.Errorf("marker = %+v", m)
	}
	if text[m.Start:m.End] != "<!-- IMAGE: red fox -->" {
		t.Errorf("span text = %q", text[m.Start:m.End])
	}
}

func TestScan_AltText(t *testing.T) {
	markers, _ := Scan("<!-- MOVIE: Alien | the 1979 original -->")
	if len(markers) != 1 {
		t.Fatalf("len(markers) = %d", len(markers))
	}
	if markers[0].Query != "Alien" || markers[0].Alt != "the 1979 original" {
		t.Errorf("marker = %+v", markers[0])
	}
}

func TestScan_AllKinds(t *testing.T) {
	text := strings.Join([]string{
		"<!-- IMAGE: a -->",
		"<!-- BOOK: b -->",
		"<!-- BOOKISBN: 9780547928227 -->",
		"<!-- MOVIE: c -->",
		"<!-- TV: d -->",
		"<!-- AIIMAGE: e -->",
	}, "\n")
	markers, warnings := Scan(text)
	if len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	want := []models.Kind{
		models.KindImage, models.KindBook, models.KindBookISBN,
		models.KindMovie, models.KindTV, models.KindAIImage,
	}
	if len(markers) != len(want) {
		t.Fatalf("len(markers) = %d, want %d", len(markers), len(want))
	}
	for i, m := range markers {
		if m.Kind != want[i] {
			t.Errorf("markers[%d].Kind = %v, want %v", i, m.Kind, want[i])
		}
	}
}

func TestScan_UnknownKeyword(t *testing.T) {
	markers, warnings := Scan("<!-- POSTER: something -->")
	if len(markers) != 0 {
		t.Errorf("markers = %v", markers)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Reason, "POSTER") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestScan_EmptyQuery(t *testing.T) {
	markers, warnings := Scan("<!-- IMAGE: -->")
	if len(markers) != 0 {
		t.Errorf("markers = %v", markers)
	}
	if len(warnings) != 1 || warnings[0].Reason != "empty query" {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestScan_LowercaseIgnored(t *testing.T) {
	// Keyword match is case-sensitive; a lowercase comment is just a comment.
	markers, warnings := Scan("<!-- image: red fox -->")
	if len(markers) != 0 || len(warnings) != 0 {
		t.Errorf("markers = %v warnings = %v", markers, warnings)
	}
}

func TestScan_QuotedMarker(t *testing.T) {
	text := `Image: "<!-- MOVIE: Alien -->"` + "\n"
	markers, _ := Scan(text)
	if len(markers) != 1 {
		t.Fatalf("len(markers) = %d", len(markers))
	}
	m := markers[0]
	if !m.Quoted || m.Quote != '"' {
		t.Errorf("marker = %+v", m)
	}
	if text[m.Start:m.End] != `"<!-- MOVIE: Alien -->"` {
		t.Errorf("span text = %q", text[m.Start:m.End])
	}
}

func TestScan_MismatchedQuoteNotQuoted(t *testing.T) {
	markers, _ := Scan(`"<!-- MOVIE: Alien -->x`)
	if len(markers) != 1 {
		t.Fatalf("len(markers) = %d", len(markers))
	}
	if markers[0].Quoted {
		t.Errorf("marker should not be quoted: %+v", markers[0])
	}
}

func TestScan_AdjacentQuotedMarkersDoNotOverlap(t *testing.T) {
	// Back-to-back quoted markers share the middle quote. Only the first
	// marker may absorb it; the second stays unquoted so the spans keep
	// strictly ascending.
	text := `k: "<!-- IMAGE: a -->""<!-- IMAGE: b -->"` + "\n"
	markers, warnings := Scan(text)
	if len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	if len(markers) != 2 {
		t.Fatalf("len(markers) = %d", len(markers))
	}
	first, second := markers[0], markers[1]
	if !first.Quoted || text[first.Start:first.End] != `"<!-- IMAGE: a -->"` {
		t.Errorf("first = %+v span %q", first, text[first.Start:first.End])
	}
	if second.Quoted {
		t.Errorf("second should not claim the shared quote: %+v", second)
	}
	if second.Start < first.End {
		t.Errorf("spans overlap: %d < %d", second.Start, first.End)
	}
}

func TestScan_SpansReconstructInput(t *testing.T) {
	text := "intro <!-- IMAGE: one --> middle <!-- BOOK: two | alt --> tail"
	markers, _ := Scan(text)
	if len(markers) != 2 {
		t.Fatalf("len(markers) = %d", len(markers))
	}
	var b strings.Builder
	prev := 0
	for _, m := range markers {
		if m.Start < prev {
			t.Fatalf("spans overlap or out of order: %+v", markers)
		}
		b.WriteString(text[prev:m.Start])
		b.WriteString(text[m.Start:m.End])
		prev = m.End
	}
	b.WriteString(text[prev:])
	if b.String() != text {
		t.Errorf("reconstruction mismatch:\n got %q\nwant %q", b.String(), text)
	}
}

func TestScan_NoMarkers(t *testing.T) {
	markers, warnings := Scan("plain note\nwith <!-- just a comment --> inside\n")
	if len(markers) != 0 || len(warnings) != 0 {
		t.Errorf("markers = %v warnings = %v", markers, warnings)
	}
}
