package models

// Outcome classifies what happened to one marker or one needs-info note.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Entry is a single report line. Every discovered marker and every
// needs-info candidate note produces exactly one entry.
type Entry struct {
	NotePath string  `json:"note_path"`
	Subject  string  `json:"subject"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`

	// AssetPath is the vault-relative path of the stored asset when the
	// entry was applied.
	AssetPath string `json:"asset_path,omitempty"`

	// Diff holds the would-be updated note content in dry-run mode.
	Diff string `json:"-"`
}

// Report accumulates entries in discovery order.
type Report struct {
	Entries []Entry
}

// Add appends an entry.
func (r *Report) Add(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Count returns the number of entries with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Applied is shorthand for Count(OutcomeApplied).
func (r *Report) Applied() int { return r.Count(OutcomeApplied) }

// Skipped is shorthand for Count(OutcomeSkipped).
func (r *Report) Skipped() int { return r.Count(OutcomeSkipped) }

// Failed is shorthand for Count(OutcomeFailed).
func (r *Report) Failed() int { return r.Count(OutcomeFailed) }
