package domain

import "strings"

// Severity is the ordinal status of a (property, aspect) pair.
// Insufficient sits below excellent: zero/low-volume rows classify to a
// non-flagging "not enough data" state instead of raising.
type Severity int

const (
	SeverityInsufficient Severity = iota
	SeverityExcellent
	SeverityGood
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	case SeverityGood:
		return "good"
	case SeverityExcellent:
		return "excellent"
	default:
		return "insufficient_data"
	}
}

// Flagged reports whether the status lands on the flagged lists.
func (s Severity) Flagged() bool { return s >= SeverityWarning }

// ParseSeverity reads an upstream label case-insensitively. ok is false for
// anything outside the four known levels (including empty).
func ParseSeverity(label string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical":
		return SeverityCritical, true
	case "warning":
		return SeverityWarning, true
	case "good":
		return SeverityGood, true
	case "excellent":
		return SeverityExcellent, true
	}
	return SeverityInsufficient, false
}
