package domain

import "strings"

// Property is one location from the portfolio directory. The directory
// defines the universe: every property appears in listing output even with
// zero issues or zero reviews.
type Property struct {
	Name  string // display name, e.g. "Austin, TX"
	City  string
	State string
	Lat   *float64 // nil when the directory has no coordinates
	Lon   *float64
}

// PropertyID derives the stable dashboard id from a display name:
// lowercase, commas stripped, spaces to hyphens. Pure and deterministic,
// so the same name always yields the same id.
func PropertyID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
