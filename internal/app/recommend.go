package app

import (
	"context"
	"fmt"
	"strings"

	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/refdata"
)

// Recommendations builds the prescriptive plan for each of a property's
// flagged aspects from the static runbook, plus a rollup summary. Unknown
// properties return nil with no error.
func (s *DiagnosticsService) Recommendations(ctx context.Context, scope domain.Scope, propertyID string, w domain.Window) (*domain.RecommendationSet, error) {
	key := fmt.Sprintf("recs:%s:%s:%s", scope.Key(), propertyID, w.Key())
	var cached domain.RecommendationSet
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return &cached, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	loc, ok := findLocation(snap.locations, propertyID)
	if !ok {
		return nil, nil
	}

	out := domain.RecommendationSet{
		Property:        loc.Name,
		PropertyID:      propertyID,
		Recommendations: []domain.Recommendation{},
	}
	for _, r := range worstPerAspect(issuesInWindow(snap.issues, w))[loc.Name] {
		sev := ClassifyRecord(r)
		if !sev.Flagged() {
			continue
		}
		out.Recommendations = append(out.Recommendations, buildRecommendation(r, sev))
	}
	out.Summary = summarizeRecommendations(out.Recommendations)
	s.cacheSet(ctx, key, out)
	return &out, nil
}

func buildRecommendation(rec domain.IssueRecord, sev domain.Severity) domain.Recommendation {
	e := refdata.Runbook(rec.Aspect)
	return domain.Recommendation{
		Aspect:         rec.Aspect,
		Priority:       titleCase(sev.String()),
		SeverityScore:  rec.NegativeShare * 100,
		Action:         e.Action,
		ActionItems:    e.ActionItems,
		ExpectedImpact: e.ExpectedImpact,
		Timeline:       e.Timeline,
		CostEstimate:   e.CostEstimate,
		Difficulty:     e.Difficulty,
	}
}

func summarizeRecommendations(recs []domain.Recommendation) domain.RecommendationSummary {
	out := domain.RecommendationSummary{
		EstimatedTimeline: "No actions required",
		OverallPriority:   "None",
	}
	if len(recs) == 0 {
		return out
	}
	out.TotalRecommendations = len(recs)
	for _, r := range recs {
		switch r.Priority {
		case "Critical":
			out.CriticalCount++
		case "Warning":
			out.WarningCount++
		}
		if len(out.TopAspects) < 3 {
			out.TopAspects = append(out.TopAspects, r.Aspect)
		}
	}
	switch {
	case out.CriticalCount > 0:
		out.OverallPriority = "Critical"
	case out.WarningCount > 0:
		out.OverallPriority = "Warning"
	default:
		out.OverallPriority = "Low"
	}

	// most urgent runbook timeline wins
	out.EstimatedTimeline = "3-4 weeks"
	for _, probe := range []string{"1 week", "2 weeks"} {
		for _, r := range recs {
			if strings.Contains(r.Timeline, probe) {
				out.EstimatedTimeline = probe
				return out
			}
		}
	}
	return out
}
