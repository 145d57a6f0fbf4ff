package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window filters facts to the trailing Days before the latest observed fact
// date in the queried table. Days <= 0 means unbounded history. Windows
// anchor to the data rather than wall clock so lagged ingests and demo
// datasets stay explorable.
type Window struct {
	Days int
}

// AllTime is the unbounded window.
var AllTime = Window{}

// TrailingDays returns a window of the trailing n days.
func TrailingDays(n int) Window { return Window{Days: n} }

func (w Window) Unbounded() bool { return w.Days <= 0 }

// CutoffFrom returns the inclusive lower bound anchored at latest.
func (w Window) CutoffFrom(latest time.Time) time.Time {
	return latest.AddDate(0, 0, -w.Days)
}

// Contains reports whether t falls inside the window anchored at latest.
func (w Window) Contains(latest, t time.Time) bool {
	if w.Unbounded() {
		return true
	}
	return !t.Before(w.CutoffFrom(latest))
}

// Key is the cache-key fragment for the window.
func (w Window) Key() string {
	if w.Unbounded() {
		return "all"
	}
	return strconv.Itoa(w.Days)
}

// ParseWindow reads the API's window parameter. Empty input takes def;
// "all" is unbounded; otherwise a positive day count.
func ParseWindow(s string, def Window) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return def, nil
	case "all":
		return AllTime, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return Window{}, fmt.Errorf("window must be \"all\" or a positive day count, got %q", s)
	}
	return TrailingDays(n), nil
}
