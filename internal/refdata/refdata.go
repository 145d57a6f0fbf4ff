// Package refdata holds the embedded reference tables the dashboard is
// seeded with: the city-to-region map, the per-aspect operations runbook,
// map coordinates for known cities and the placeholder dataset served when
// the warehouse is unreachable.
package refdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"lakehouse_voc/internal/domain"
)

//go:embed regions.json runbook.json coordinates.json placeholder.json
var assets embed.FS

// RunbookEntry is the curated improvement plan for one guest-experience
// aspect. Unknown aspects get the generic plan with the aspect name
// substituted in.
type RunbookEntry struct {
	Aspect           string
	Action           string
	ActionItems      []string
	EmailActionItems []string
	ExpectedImpact   string
	Timeline         string
	CostEstimate     string
	Difficulty       string
}

type regionsFile struct {
	CanonicalOrder []string          `json:"canonical_order"`
	Cities         map[string]string `json:"cities"`
}

type runbookEntryFile struct {
	Action           string   `json:"action"`
	ActionItems      []string `json:"action_items"`
	EmailActionItems []string `json:"email_action_items"`
	ExpectedImpact   string   `json:"expected_impact"`
	Timeline         string   `json:"timeline"`
	CostEstimate     string   `json:"cost_estimate"`
	Difficulty       string   `json:"difficulty"`
}

type runbookFile struct {
	Aspects map[string]runbookEntryFile `json:"aspects"`
	Generic runbookEntryFile            `json:"generic"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type coordsFile struct {
	Default latLon            `json:"default"`
	Cities  map[string]latLon `json:"cities"`
}

type placeholderFile struct {
	Locations []struct {
		Name  string `json:"name"`
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"locations"`
	Issues []struct {
		Property      string            `json:"property"`
		Aspect        string            `json:"aspect"`
		Label         *string           `json:"label"`
		NegativeShare float64           `json:"negative_share"`
		Volume        int               `json:"volume"`
		BaselineShare *float64          `json:"baseline_share"`
		OpenedAt      string            `json:"opened_at"`
		OpenReason    string            `json:"open_reason"`
		Narrative     *domain.Narrative `json:"narrative"`
	} `json:"issues"`
	DailyReviews []struct {
		Day      string `json:"day"`
		Reviews  int    `json:"reviews"`
		Negative int    `json:"negative"`
	} `json:"daily_reviews"`
}

var (
	regions regionsFile
	runbook runbookFile
	coords  coordsFile

	placeholderLocations []domain.Property
	placeholderIssues    []domain.IssueRecord
	placeholderDaily     []domain.DailyReviewCount
)

func init() {
	mustLoad("regions.json", &regions)
	mustLoad("runbook.json", &runbook)
	mustLoad("coordinates.json", &coords)

	var pf placeholderFile
	mustLoad("placeholder.json", &pf)
	for _, l := range pf.Locations {
		placeholderLocations = append(placeholderLocations, domain.Property{Name: l.Name, City: l.City, State: l.State})
	}
	for _, in := range pf.Issues {
		placeholderIssues = append(placeholderIssues, domain.IssueRecord{
			PropertyName:  in.Property,
			Aspect:        in.Aspect,
			Label:         in.Label,
			NegativeShare: in.NegativeShare,
			Volume:        in.Volume,
			BaselineShare: in.BaselineShare,
			OpenedAt:      mustDay("placeholder issue "+in.Property+"/"+in.Aspect, in.OpenedAt),
			OpenReason:    in.OpenReason,
			Narrative:     in.Narrative,
		})
	}
	for _, d := range pf.DailyReviews {
		placeholderDaily = append(placeholderDaily, domain.DailyReviewCount{
			Day:      mustDay("placeholder daily count", d.Day),
			Reviews:  d.Reviews,
			Negative: d.Negative,
		})
	}
}

func mustLoad(name string, dst any) {
	raw, err := assets.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("refdata: read %s: %v", name, err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		panic(fmt.Sprintf("refdata: parse %s: %v", name, err))
	}
}

func mustDay(what, s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("refdata: %s: %v", what, err))
	}
	return t
}

// RegionFor maps a city to its reporting region. Unmapped cities land in
// "Other". Matching is case-insensitive.
func RegionFor(city string) string {
	if r, ok := regions.Cities[strings.ToLower(strings.TrimSpace(city))]; ok {
		return r
	}
	return "Other"
}

// CanonicalRegions returns the fixed presentation order for region buckets.
func CanonicalRegions() []string {
	out := make([]string, len(regions.CanonicalOrder))
	copy(out, regions.CanonicalOrder)
	return out
}

// Runbook returns the improvement plan for an aspect, falling back to the
// generic plan with the aspect name filled in.
func Runbook(aspect string) RunbookEntry {
	if e, ok := runbook.Aspects[aspect]; ok {
		return e.toEntry(aspect, false)
	}
	return runbook.Generic.toEntry(aspect, true)
}

// RunbookSize reports how many aspects have curated plans. The KPI header
// uses it as the denominator for aspect coverage.
func RunbookSize() int { return len(runbook.Aspects) }

// RunbookAspects lists the curated aspect names in sorted order.
func RunbookAspects() []string {
	out := make([]string, 0, len(runbook.Aspects))
	for a := range runbook.Aspects {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// CityCoordinates resolves map coordinates for a "City, ST" pair, falling
// back to the geographic center of the contiguous US.
func CityCoordinates(city, state string) (lat, lon float64) {
	key := fmt.Sprintf("%s, %s", strings.TrimSpace(city), strings.TrimSpace(state))
	if c, ok := coords.Cities[key]; ok {
		return c.Lat, c.Lon
	}
	return coords.Default.Lat, coords.Default.Lon
}

// PlaceholderLocations returns the demo property directory used when the
// warehouse cannot be reached.
func PlaceholderLocations() []domain.Property {
	out := make([]domain.Property, len(placeholderLocations))
	copy(out, placeholderLocations)
	return out
}

// PlaceholderIssues returns the demo aspect observations.
func PlaceholderIssues() []domain.IssueRecord {
	out := make([]domain.IssueRecord, len(placeholderIssues))
	copy(out, placeholderIssues)
	return out
}

// PlaceholderDailyReviews returns the demo review volume series.
func PlaceholderDailyReviews() []domain.DailyReviewCount {
	out := make([]domain.DailyReviewCount, len(placeholderDaily))
	copy(out, placeholderDaily)
	return out
}

func (f runbookEntryFile) toEntry(aspect string, substitute bool) RunbookEntry {
	sub := func(s string) string { return s }
	if substitute {
		lowered := strings.ToLower(aspect)
		sub = func(s string) string { return strings.ReplaceAll(s, "{aspect}", lowered) }
	}
	items := make([]string, len(f.ActionItems))
	for i, it := range f.ActionItems {
		items[i] = sub(it)
	}
	emails := make([]string, len(f.EmailActionItems))
	for i, it := range f.EmailActionItems {
		emails[i] = sub(it)
	}
	return RunbookEntry{
		Aspect:           aspect,
		Action:           sub(f.Action),
		ActionItems:      items,
		EmailActionItems: emails,
		ExpectedImpact:   sub(f.ExpectedImpact),
		Timeline:         f.Timeline,
		CostEstimate:     f.CostEstimate,
		Difficulty:       f.Difficulty,
	}
}
