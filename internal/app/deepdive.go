package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/refdata"
)

// ReviewAspects lists the sorted distinct aspect names observed for a
// property, for the drill-down selector. Unknown properties get an empty
// list, not an error.
func (s *DiagnosticsService) ReviewAspects(ctx context.Context, scope domain.Scope, propertyID string) ([]string, error) {
	key := fmt.Sprintf("aspects:%s:%s", scope.Key(), propertyID)
	var out []string
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	set := map[string]struct{}{}
	for _, is := range snap.issues {
		if domain.PropertyID(is.PropertyName) == propertyID {
			set[is.Aspect] = struct{}{}
		}
	}
	out = make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	s.cacheSet(ctx, key, out)
	return out, nil
}

// AspectDetail is the deep-dive view for one (property, aspect) pair, built
// from its highest-negative-share record. Narrative fields come through
// verbatim; each empty field falls back to templated text. Unknown pairs
// return a nil detail with no error so callers can render a not-found state.
func (s *DiagnosticsService) AspectDetail(ctx context.Context, scope domain.Scope, propertyID, aspect string) (*domain.DeepDive, error) {
	key := fmt.Sprintf("detail:%s:%s:%s", scope.Key(), propertyID, aspect)
	var cached domain.DeepDive
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return &cached, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	rec, ok := worstRecordFor(snap.issues, propertyID, aspect)
	if !ok {
		return nil, nil
	}
	out := buildDeepDive(rec)
	s.cacheSet(ctx, key, out)
	return &out, nil
}

// ReviewsForAspect returns the pair's individual review facts split by
// polarity, windowed backward from the matching issue's opened_at date so
// historical data stays explorable whenever the dashboard is viewed.
func (s *DiagnosticsService) ReviewsForAspect(ctx context.Context, scope domain.Scope, propertyID, aspect string, w domain.Window) (domain.ReviewBuckets, error) {
	key := fmt.Sprintf("reviews:%s:%s:%s:%s", scope.Key(), propertyID, aspect, w.Key())
	var out domain.ReviewBuckets
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out = domain.ReviewBuckets{Negative: []domain.GuestReview{}, Positive: []domain.GuestReview{}}

	snap := s.fetchSnapshot(ctx, scope)
	rec, ok := worstRecordFor(snap.issues, propertyID, aspect)
	if !ok {
		return out, nil
	}
	facts, err := s.repo.ListReviewFacts(ctx, scope, rec.PropertyName, rec.Aspect)
	if err != nil {
		log.Warn().Err(err).Str("property", rec.PropertyName).Str("aspect", rec.Aspect).
			Msg("review facts unavailable, serving empty buckets")
		return out, nil
	}
	for _, f := range facts {
		if !w.Unbounded() && f.ReviewDate.Before(w.CutoffFrom(rec.OpenedAt)) {
			continue
		}
		if f.ReviewDate.After(rec.OpenedAt) {
			continue
		}
		gr := toGuestReview(f)
		if f.Negative() {
			out.Negative = append(out.Negative, gr)
		} else {
			out.Positive = append(out.Positive, gr)
		}
	}
	s.cacheSet(ctx, key, out)
	return out, nil
}

// worstRecordFor picks the highest-negative-share record for the pair.
func worstRecordFor(issues []domain.IssueRecord, propertyID, aspect string) (domain.IssueRecord, bool) {
	var best domain.IssueRecord
	found := false
	for _, is := range issues {
		if domain.PropertyID(is.PropertyName) != propertyID || is.Aspect != aspect {
			continue
		}
		if !found || is.NegativeShare > best.NegativeShare {
			best = is
			found = true
		}
	}
	return best, found
}

func buildDeepDive(rec domain.IssueRecord) domain.DeepDive {
	negative := int(math.Round(rec.NegativeShare * float64(rec.Volume)))
	out := domain.DeepDive{
		Aspect:           rec.Aspect,
		Severity:         ClassifyRecord(rec).String(),
		DateOpened:       rec.OpenedAt.Format("2006-01-02"),
		OpenReason:       rec.OpenReason,
		VolumePercentage: int(math.Round(rec.NegativeShare * 100)),
		TotalReviews:     rec.Volume,
		NegativeCount:    negative,
		PositiveCount:    rec.Volume - negative,
	}

	n := rec.Narrative
	if n == nil {
		n = &domain.Narrative{}
	}
	out.IssueSummary = n.Summary
	if out.IssueSummary == "" {
		out.IssueSummary = fmt.Sprintf("%s drew %d%% negative mentions across %d reviews in the observation window.",
			rec.Aspect, out.VolumePercentage, rec.Volume)
	}
	out.PotentialRootCause = n.RootCause
	if out.PotentialRootCause == "" {
		out.PotentialRootCause = fmt.Sprintf("Not yet determined. Review recent negative %s comments for recurring themes.",
			strings.ToLower(rec.Aspect))
	}
	out.Impact = n.Impact
	if out.Impact == "" {
		out.Impact = "Sustained negative feedback in this area typically drags the property's overall satisfaction score."
	}
	out.RecommendedAction = n.Recommendation
	if out.RecommendedAction == "" {
		out.RecommendedAction = refdata.Runbook(rec.Aspect).Action
	}
	return out
}

func toGuestReview(f domain.ReviewFact) domain.GuestReview {
	gr := domain.GuestReview{
		ReviewID:     f.ReviewID,
		Sentiment:    f.Sentiment,
		StarRating:   f.StarRating,
		ReviewDate:   f.ReviewDate.Format("2006-01-02"),
		Evidence:     f.Evidence,
		OpinionTerms: f.OpinionTerms,
	}
	if f.Channel != nil {
		gr.Channel = *f.Channel
	}
	if f.Text != nil {
		gr.Text = *f.Text
	}
	if gr.Evidence == nil {
		gr.Evidence = []string{}
	}
	if gr.OpinionTerms == nil {
		gr.OpinionTerms = []string{}
	}
	return gr
}
