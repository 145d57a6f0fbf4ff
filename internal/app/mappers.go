package app

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lakehouse_voc/internal/domain"
)

/********** alias registries (single source of truth) **********/

var kindAliases = map[string][]string{
	"kind": {"kind", "type", "record_type"},
}

var locationAliases = map[string][]string{
	"name":  {"property", "property_name", "name", "hotel_name", "location.name"},
	"city":  {"city", "location.city", "address.city"},
	"state": {"state", "state_code", "location.state", "address.state"},
}

var issueAliases = map[string][]string{
	"property":       {"property", "property_name", "hotel", "location_name"},
	"aspect":         {"aspect", "aspect_name", "category", "topic"},
	"label":          {"label", "status", "severity"},
	"reason":         {"open_reason", "reason", "trigger"},
	"summary":        {"narrative.summary", "issue_summary", "summary"},
	"root_cause":     {"narrative.root_cause", "potential_root_cause", "root_cause"},
	"impact":         {"narrative.impact", "impact"},
	"recommendation": {"narrative.recommendation", "recommended_action", "recommendation"},
}

var reviewRowAliases = map[string][]string{
	"review_id": {"review_id", "reviewId", "id"},
	"property":  {"property", "property_name", "hotel"},
	"aspect":    {"aspect", "aspect_name", "category"},
	"sentiment": {"sentiment", "polarity", "sentiment_label"},
	"channel":   {"channel", "source", "platform", "site"},
	"text":      {"text", "review_text", "review", "comment", "body"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (float64/int/string like "0,41").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, paths ...string) *int64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int64(v)
			return &x
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {text/term/snippet}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if s, ok := t["text"].(string); ok && s != "" {
						out = append(out, s)
						continue
					}
					if s, ok := t["term"].(string); ok && s != "" {
						out = append(out, s)
						continue
					}
					if s, ok := t["snippet"].(string); ok && s != "" {
						out = append(out, s)
						continue
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// firstTimeFlexible: timestamp from several paths (RFC3339, datetime or
// date-only layouts).
func firstTimeFlexible(m map[string]any, paths ...string) *time.Time {
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}
	for _, k := range paths {
		s, ok := lookupAny(m, k).(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

/********** row dispatch **********/

func rowKind(m map[string]any) string {
	return strings.ToLower(strings.TrimSpace(deref(firstNonEmptyAlias(m, kindAliases, "kind"))))
}

/********** location mapper **********/

func mapLocationRow(m map[string]any) (domain.Property, error) {
	name := strings.TrimSpace(deref(firstNonEmptyAlias(m, locationAliases, "name")))
	if name == "" {
		return domain.Property{}, fmt.Errorf("location row missing property name")
	}
	return domain.Property{
		Name:  name,
		City:  strings.TrimSpace(deref(firstNonEmptyAlias(m, locationAliases, "city"))),
		State: strings.TrimSpace(deref(firstNonEmptyAlias(m, locationAliases, "state"))),
		Lat:   getFloatFlexible(m, "latitude", "lat", "location.lat"),
		Lon:   getFloatFlexible(m, "longitude", "lon", "lng", "location.lon", "location.lng"),
	}, nil
}

/********** issue mapper **********/

func mapIssueRow(m map[string]any) (domain.IssueRecord, error) {
	rec := domain.IssueRecord{
		PropertyName: strings.TrimSpace(deref(firstNonEmptyAlias(m, issueAliases, "property"))),
		Aspect:       strings.TrimSpace(deref(firstNonEmptyAlias(m, issueAliases, "aspect"))),
		Label:        firstNonEmptyAlias(m, issueAliases, "label"),
		OpenReason:   deref(firstNonEmptyAlias(m, issueAliases, "reason")),
	}
	if rec.PropertyName == "" {
		return rec, fmt.Errorf("issue row missing property name")
	}
	if rec.Aspect == "" {
		return rec, fmt.Errorf("issue row missing aspect")
	}

	share := getFloatFlexible(m, "negative_share", "neg_share", "negative_ratio", "metrics.negative_share")
	if share == nil {
		return rec, fmt.Errorf("issue row missing negative share")
	}
	if *share < 0 || *share > 1 {
		return rec, fmt.Errorf("negative share %v outside [0,1]", *share)
	}
	rec.NegativeShare = *share

	vol := firstInt64Flexible(m, "volume", "review_count", "reviews", "sample_size", "metrics.volume")
	if vol == nil || *vol < 0 {
		return rec, fmt.Errorf("issue row missing a usable review volume")
	}
	rec.Volume = int(*vol)

	// baseline is auxiliary; out-of-range values are dropped, not fatal
	if b := getFloatFlexible(m, "baseline_share", "baseline", "prior_share", "metrics.baseline_share"); b != nil && *b >= 0 && *b <= 1 {
		rec.BaselineShare = b
	}

	opened := firstTimeFlexible(m, "opened_at", "date_opened", "detected_at", "created_at")
	if opened == nil {
		return rec, fmt.Errorf("issue row missing opened date")
	}
	rec.OpenedAt = *opened

	n := domain.Narrative{
		Summary:        deref(firstNonEmptyAlias(m, issueAliases, "summary")),
		RootCause:      deref(firstNonEmptyAlias(m, issueAliases, "root_cause")),
		Impact:         deref(firstNonEmptyAlias(m, issueAliases, "impact")),
		Recommendation: deref(firstNonEmptyAlias(m, issueAliases, "recommendation")),
	}
	if n != (domain.Narrative{}) {
		rec.Narrative = &n
	}
	return rec, nil
}

/********** review mapper **********/

func mapReviewRow(m map[string]any) (domain.ReviewFact, error) {
	rf := domain.ReviewFact{
		PropertyName: strings.TrimSpace(deref(firstNonEmptyAlias(m, reviewRowAliases, "property"))),
		Aspect:       strings.TrimSpace(deref(firstNonEmptyAlias(m, reviewRowAliases, "aspect"))),
		Channel:      firstNonEmptyAlias(m, reviewRowAliases, "channel"),
		Text:         firstNonEmptyAlias(m, reviewRowAliases, "text"),
		Evidence:     firstSliceStrings(m, "evidence", "evidence_snippets", "snippets"),
		OpinionTerms: firstSliceStrings(m, "opinion_terms", "opinions", "terms"),
	}
	if rf.PropertyName == "" {
		return rf, fmt.Errorf("review row missing property name")
	}
	if rf.Aspect == "" {
		return rf, fmt.Errorf("review row missing aspect")
	}

	rf.StarRating = getFloatFlexible(m, "star_rating", "rating", "stars", "score")

	// Sentiment → prefer the explicit field; fall back to the star rating.
	if s := firstNonEmptyAlias(m, reviewRowAliases, "sentiment"); s != nil {
		rf.Sentiment = strings.ToLower(strings.TrimSpace(*s))
	} else if rf.StarRating != nil {
		if *rf.StarRating <= 2 {
			rf.Sentiment = "negative"
		} else {
			rf.Sentiment = "positive"
		}
	} else {
		return rf, fmt.Errorf("review row missing sentiment")
	}

	when := firstTimeFlexible(m, "review_date", "date", "created_at", "published_at")
	if when == nil {
		return rf, fmt.Errorf("review row missing review date")
	}
	rf.ReviewDate = *when

	// ReviewID → prefer explicit; else synthesize stable hash.
	if s := firstNonEmptyAlias(m, reviewRowAliases, "review_id"); s != nil {
		rf.ReviewID = *s
	} else {
		sig := strings.Join([]string{rf.PropertyName, rf.Aspect, rf.ReviewDate.Format("2006-01-02"), deref(rf.Text)}, "|")
		sum := sha1.Sum([]byte(sig))
		rf.ReviewID = hex.EncodeToString(sum[:])
	}
	return rf, nil
}
