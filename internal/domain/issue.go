package domain

import "time"

// IssueRecord is one warehouse row: an open issue observed for a
// (property, aspect) pair. Rows are append-only facts computed by the
// upstream pipeline; this system reads, filters and groups them only.
type IssueRecord struct {
	PropertyName  string
	Aspect        string
	Label         *string // upstream severity label; trusted when present
	NegativeShare float64 // fraction in [0,1]
	Volume        int
	BaselineShare *float64 // trailing 21-day baseline share, when computed upstream
	OpenedAt      time.Time
	OpenReason    string
	Narrative     *Narrative
}

// Narrative is the structured payload some pipeline versions attach to an
// issue row. Any field may be empty; display falls back to templated text.
type Narrative struct {
	Summary        string `json:"summary"`
	RootCause      string `json:"root_cause"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}
