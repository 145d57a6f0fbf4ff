package app_test

import (
	"context"
	"testing"

	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/refdata"
)

func TestReviewAspects(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{
			{Name: "Denver Downtown", City: "Denver", State: "CO"},
			{Name: "Miami Beach", City: "Miami", State: "FL"},
		},
		issues: []domain.IssueRecord{
			{PropertyName: "Denver Downtown", Aspect: "Staff Service", NegativeShare: 0.12, Volume: 60, OpenedAt: day("2025-06-08")},
			{PropertyName: "Denver Downtown", Aspect: "Room Cleanliness", NegativeShare: 0.45, Volume: 80, OpenedAt: day("2025-06-09")},
			{PropertyName: "Denver Downtown", Aspect: "Room Cleanliness", NegativeShare: 0.22, Volume: 40, OpenedAt: day("2025-06-05")},
			{PropertyName: "Miami Beach", Aspect: "Noise Levels", NegativeShare: 0.30, Volume: 70, OpenedAt: day("2025-06-08")},
		},
	}
	q := newService(repo)

	aspects, err := q.ReviewAspects(context.Background(), hq, "denver-downtown")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []string{"Room Cleanliness", "Staff Service"}
	if len(aspects) != len(want) || aspects[0] != want[0] || aspects[1] != want[1] {
		t.Fatalf("aspects = %v, want %v", aspects, want)
	}

	none, err := q.ReviewAspects(context.Background(), hq, "grand-phantom")
	if err != nil {
		t.Fatalf("unknown property must not error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected empty list, got %v", none)
	}
}

func TestAspectDetail_CountsFromShareAndVolume(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Austin Central", City: "Austin", State: "TX"}},
		issues: []domain.IssueRecord{{
			PropertyName:  "Austin Central",
			Aspect:        "WiFi Connectivity",
			NegativeShare: 0.409,
			Volume:        100,
			OpenedAt:      day("2025-06-09"),
			OpenReason:    "wifi_connectivity_issues",
		}},
	}
	q := newService(repo)

	dd, err := q.AspectDetail(context.Background(), hq, "austin-central", "WiFi Connectivity")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if dd == nil {
		t.Fatal("expected a detail view")
	}
	if dd.NegativeCount != 41 || dd.PositiveCount != 59 {
		t.Errorf("counts = %d/%d, want 41/59", dd.NegativeCount, dd.PositiveCount)
	}
	if dd.VolumePercentage != 41 || dd.TotalReviews != 100 {
		t.Errorf("volume fields = %d%% of %d", dd.VolumePercentage, dd.TotalReviews)
	}
	if dd.Severity != "critical" {
		t.Errorf("severity = %q", dd.Severity)
	}
	if dd.DateOpened != "2025-06-09" || dd.OpenReason != "wifi_connectivity_issues" {
		t.Errorf("provenance fields wrong: %+v", dd)
	}
}

func TestAspectDetail_NarrativeFallbacks(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Austin Central", City: "Austin", State: "TX"}},
		issues: []domain.IssueRecord{{
			PropertyName:  "Austin Central",
			Aspect:        "WiFi Connectivity",
			NegativeShare: 0.409,
			Volume:        100,
			OpenedAt:      day("2025-06-09"),
		}},
	}
	q := newService(repo)

	dd, _ := q.AspectDetail(context.Background(), hq, "austin-central", "WiFi Connectivity")
	if dd.IssueSummary != "WiFi Connectivity drew 41% negative mentions across 100 reviews in the observation window." {
		t.Errorf("summary fallback = %q", dd.IssueSummary)
	}
	if dd.PotentialRootCause != "Not yet determined. Review recent negative wifi connectivity comments for recurring themes." {
		t.Errorf("root cause fallback = %q", dd.PotentialRootCause)
	}
	if dd.Impact == "" {
		t.Error("impact fallback missing")
	}
	if dd.RecommendedAction != refdata.Runbook("WiFi Connectivity").Action {
		t.Errorf("action fallback = %q", dd.RecommendedAction)
	}
}

func TestAspectDetail_NarrativePassesThroughVerbatim(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Austin Central", City: "Austin", State: "TX"}},
		issues: []domain.IssueRecord{{
			PropertyName:  "Austin Central",
			Aspect:        "WiFi Connectivity",
			NegativeShare: 0.51,
			Volume:        100,
			OpenedAt:      day("2025-06-10"),
			Narrative: &domain.Narrative{
				Summary:        "Guests report frequent drops in conference rooms.",
				RootCause:      "Aging access points on floors 3-5.",
				Impact:         "Business travelers are rebooking elsewhere.",
				Recommendation: "Replace the access points and add a second uplink.",
			},
		}},
	}
	q := newService(repo)

	dd, _ := q.AspectDetail(context.Background(), hq, "austin-central", "WiFi Connectivity")
	if dd.IssueSummary != "Guests report frequent drops in conference rooms." {
		t.Errorf("summary = %q", dd.IssueSummary)
	}
	if dd.PotentialRootCause != "Aging access points on floors 3-5." {
		t.Errorf("root cause = %q", dd.PotentialRootCause)
	}
	if dd.Impact != "Business travelers are rebooking elsewhere." {
		t.Errorf("impact = %q", dd.Impact)
	}
	if dd.RecommendedAction != "Replace the access points and add a second uplink." {
		t.Errorf("action = %q", dd.RecommendedAction)
	}
}

func TestAspectDetail_PartialNarrativeFillsOnlyGaps(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Austin Central", City: "Austin", State: "TX"}},
		issues: []domain.IssueRecord{{
			PropertyName:  "Austin Central",
			Aspect:        "WiFi Connectivity",
			NegativeShare: 0.51,
			Volume:        100,
			OpenedAt:      day("2025-06-10"),
			Narrative:     &domain.Narrative{Summary: "Drops in conference rooms."},
		}},
	}
	q := newService(repo)

	dd, _ := q.AspectDetail(context.Background(), hq, "austin-central", "WiFi Connectivity")
	if dd.IssueSummary != "Drops in conference rooms." {
		t.Errorf("summary = %q", dd.IssueSummary)
	}
	if dd.PotentialRootCause == "" || dd.RecommendedAction == "" {
		t.Errorf("missing fields must fall back: %+v", dd)
	}
}

func TestAspectDetail_UnknownPair(t *testing.T) {
	q := newService(twoPropertyRepo())

	dd, err := q.AspectDetail(context.Background(), hq, "austin-central", "Valet Parking")
	if err != nil {
		t.Fatalf("unknown aspect must not error: %v", err)
	}
	if dd != nil {
		t.Errorf("expected nil detail, got %+v", dd)
	}
}

func TestReviewsForAspect_WindowAndPolarity(t *testing.T) {
	repo := twoPropertyRepo() // Austin wifi issue opened 2025-06-10
	repo.facts = []domain.ReviewFact{
		{ReviewID: "r1", PropertyName: "Austin Central", Aspect: "WiFi Connectivity", Sentiment: "negative", ReviewDate: day("2025-06-09"), StarRating: ptr(2.0), Text: ptr("Dropped every hour.")},
		{ReviewID: "r2", PropertyName: "Austin Central", Aspect: "WiFi Connectivity", Sentiment: "very_negative", ReviewDate: day("2025-06-10")},
		{ReviewID: "r3", PropertyName: "Austin Central", Aspect: "WiFi Connectivity", Sentiment: "positive", ReviewDate: day("2025-06-08"), Channel: ptr("booking")},
		{ReviewID: "r4", PropertyName: "Austin Central", Aspect: "WiFi Connectivity", Sentiment: "neutral", ReviewDate: day("2025-06-07")},
		{ReviewID: "r5", PropertyName: "Austin Central", Aspect: "WiFi Connectivity", Sentiment: "negative", ReviewDate: day("2025-05-01")},
		{ReviewID: "r6", PropertyName: "Austin Central", Aspect: "WiFi Connectivity", Sentiment: "positive", ReviewDate: day("2025-06-12")},
		{ReviewID: "r7", PropertyName: "Austin Central", Aspect: "Staff Service", Sentiment: "negative", ReviewDate: day("2025-06-09")},
	}
	q := newService(repo)

	buckets, err := q.ReviewsForAspect(context.Background(), hq, "austin-central", "WiFi Connectivity", domain.TrailingDays(7))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(buckets.Negative) != 2 || buckets.Negative[0].ReviewID != "r1" || buckets.Negative[1].ReviewID != "r2" {
		t.Errorf("negative bucket = %+v", buckets.Negative)
	}
	// neutral counts toward the positive side
	if len(buckets.Positive) != 2 || buckets.Positive[0].ReviewID != "r3" || buckets.Positive[1].ReviewID != "r4" {
		t.Errorf("positive bucket = %+v", buckets.Positive)
	}
	if buckets.Negative[0].ReviewDate != "2025-06-09" || buckets.Negative[0].Text != "Dropped every hour." {
		t.Errorf("unexpected review rendering: %+v", buckets.Negative[0])
	}
	if buckets.Negative[1].Evidence == nil || buckets.Negative[1].OpinionTerms == nil {
		t.Error("evidence lists must be non-nil")
	}

	// the window anchors at the issue's opened date, so the unbounded view
	// picks up the old fact but still drops anything newer than opened_at
	all, _ := q.ReviewsForAspect(context.Background(), hq, "austin-central", "WiFi Connectivity", domain.AllTime)
	if len(all.Negative) != 3 || len(all.Positive) != 2 {
		t.Errorf("all-time buckets = %d/%d, want 3/2", len(all.Negative), len(all.Positive))
	}
}

func TestReviewsForAspect_UnknownPairAndOutage(t *testing.T) {
	q := newService(twoPropertyRepo())
	buckets, err := q.ReviewsForAspect(context.Background(), hq, "austin-central", "Valet Parking", domain.AllTime)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(buckets.Negative) != 0 || len(buckets.Positive) != 0 {
		t.Errorf("expected empty buckets, got %+v", buckets)
	}
	if buckets.Negative == nil || buckets.Positive == nil {
		t.Error("buckets must be non-nil")
	}

	repo := twoPropertyRepo()
	repo.factsErr = context.DeadlineExceeded
	q = newService(repo)
	buckets, err = q.ReviewsForAspect(context.Background(), hq, "austin-central", "WiFi Connectivity", domain.AllTime)
	if err != nil {
		t.Fatalf("fact outage must not propagate: %v", err)
	}
	if len(buckets.Negative) != 0 || len(buckets.Positive) != 0 {
		t.Errorf("expected empty buckets on outage, got %+v", buckets)
	}
}
