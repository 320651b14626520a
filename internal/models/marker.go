// Package models defines the domain types for Othala.
package models

import "fmt"

// Kind identifies which media provider a marker targets.
type Kind int

// The closed set of marker kinds. The provider set is fixed, so dispatch
// happens over this enum rather than an open registry.
const (
	KindImage Kind = iota
	KindBook
	KindBookISBN
	KindMovie
	KindTV
	KindAIImage
)

// Keyword returns the wire keyword as it appears inside a marker comment.
func (k Kind) Keyword() string {
	switch k {
	case KindImage:
		return "IMAGE"
	case KindBook:
		return "BOOK"
	case KindBookISBN:
		return "BOOKISBN"
	case KindMovie:
		return "MOVIE"
	case KindTV:
		return "TV"
	case KindAIImage:
		return "AIIMAGE"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// String implements fmt.Stringer.
func (k Kind) String() string { return k.Keyword() }

// KindFromKeyword maps a marker keyword to its Kind. The match is
// case-sensitive: only the exact uppercase keywords are recognized.
func KindFromKeyword(s string) (Kind, bool) {
	switch s {
	case "IMAGE":
		return KindImage, true
	case "BOOK":
		return KindBook, true
	case "BOOKISBN":
		return KindBookISBN, true
	case "MOVIE":
		return KindMovie, true
	case "TV":
		return KindTV, true
	case "AIIMAGE":
		return KindAIImage, true
	}
	return 0, false
}

// Marker is a single media request parsed out of a note. Start and End are
// byte offsets into the original text; the half-open range [Start, End)
// covers the full comment including any surrounding quote characters.
type Marker struct {
	Kind  Kind
	Query string
	Alt   string

	// Quoted is set when the comment is wrapped in matching quote
	// characters, as happens when a marker sits inside a frontmatter
	// value. The replacement keeps the quotes.
	Quoted bool
	Quote  byte

	Start int
	End   int
}

// Subject is the human-readable identity of the marker used in reports.
func (m Marker) Subject() string {
	return m.Kind.Keyword() + ": " + m.Query
}

// ResolvedAsset is the outcome of a successful provider lookup: either a
// direct URL to fetch or the asset bytes themselves (generated images).
type ResolvedAsset struct {
	Marker Marker

	URL  string
	Data []byte

	// MIME is a content-type hint when the provider knows it up front.
	MIME string

	Meta Metadata
}

// Metadata carries provider-supplied fields used by the frontmatter filler.
// Zero values mean "not supplied".
type Metadata struct {
	Title    string
	Author   string
	ISBN     string
	Year     int
	TMDBID   int
	Services []string
}

// StoredAsset is a materialized asset on disk, addressed relative to the
// vault root with forward slashes.
type StoredAsset struct {
	RelPath string
	Marker  Marker
}
