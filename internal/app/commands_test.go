package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"lakehouse_voc/internal/app"
	"lakehouse_voc/internal/domain"
)

// recordingRepo captures the write side of the port; reads inherit the
// shared fake.
type recordingRepo struct {
	fakeRepo
	gotLocations []domain.Property
	gotIssues    []domain.IssueRecord
	gotFacts     []domain.ReviewFact
	rejects      []string
	upsertErr    error
}

func (r *recordingRepo) UpsertLocations(ctx context.Context, ls []domain.Property) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.gotLocations = append(r.gotLocations, ls...)
	return nil
}
func (r *recordingRepo) UpsertIssues(ctx context.Context, is []domain.IssueRecord) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.gotIssues = append(r.gotIssues, is...)
	return nil
}
func (r *recordingRepo) UpsertReviewFacts(ctx context.Context, rs []domain.ReviewFact) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.gotFacts = append(r.gotFacts, rs...)
	return nil
}
func (r *recordingRepo) LogReject(ctx context.Context, id string, line int, reason string) error {
	r.rejects = append(r.rejects, fmt.Sprintf("%d: %s", line, reason))
	return nil
}

func feedLines(lines ...string) []app.FeedLine {
	out := make([]app.FeedLine, 0, len(lines))
	for i, l := range lines {
		out = append(out, app.FeedLine{Number: i + 1, Raw: []byte(l)})
	}
	return out
}

func TestIngestLines_MixedBatch(t *testing.T) {
	repo := &recordingRepo{}
	svc := app.NewIngestionService(repo, &fakeCache{})

	res, err := svc.IngestLines(context.Background(), feedLines(
		`{"kind":"location","property":"Austin Central","city":"Austin","state":"TX"}`,
		`{"kind":"location","property_name":"Boston Harborside","location":{"city":"Boston","state":"MA"}}`,
		`{"kind":"issue","property":"Austin Central","aspect":"WiFi Connectivity","negative_share":0.51,"volume":100,"opened_at":"2025-06-10","open_reason":"wifi_connectivity_issues"}`,
		`{"kind":"review","property":"Austin Central","aspect":"WiFi Connectivity","sentiment":"negative","review_date":"2025-06-09","review_id":"rv-1"}`,
		`this is not json`,
		`{"kind":"headcount","property":"Austin Central"}`,
		`{"kind":"issue","property":"Austin Central","aspect":"WiFi Connectivity","negative_share":1.4,"volume":10,"opened_at":"2025-06-10"}`,
		``,
	))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Locations != 2 || res.Issues != 1 || res.Reviews != 1 || res.Rejected != 3 {
		t.Fatalf("unexpected tally: %+v", res)
	}

	if len(repo.gotLocations) != 2 || repo.gotLocations[1].Name != "Boston Harborside" {
		t.Errorf("locations not upserted: %+v", repo.gotLocations)
	}
	if len(repo.gotIssues) != 1 || repo.gotIssues[0].NegativeShare != 0.51 {
		t.Errorf("issues not upserted: %+v", repo.gotIssues)
	}
	if len(repo.gotFacts) != 1 || repo.gotFacts[0].ReviewID != "rv-1" {
		t.Errorf("review facts not upserted: %+v", repo.gotFacts)
	}

	if len(repo.rejects) != 3 {
		t.Fatalf("rejects = %v", repo.rejects)
	}
	if repo.rejects[0] != "5: not valid JSON" {
		t.Errorf("first reject = %q", repo.rejects[0])
	}
	if !strings.Contains(repo.rejects[1], `unknown row kind "headcount"`) {
		t.Errorf("second reject = %q", repo.rejects[1])
	}
	if !strings.Contains(repo.rejects[2], "outside [0,1]") {
		t.Errorf("third reject = %q", repo.rejects[2])
	}
}

func TestIngestLines_InvalidatesHotDashboardKeys(t *testing.T) {
	repo := &recordingRepo{}
	cache := &fakeCache{}
	ctx := context.Background()
	for _, key := range []string{"kpis:hq:all", "props:hq:14", "regsum:hq", "props:pm:austin-central:all"} {
		if err := cache.Set(ctx, key, 1, 60); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := app.NewIngestionService(repo, cache)

	_, err := svc.IngestLines(ctx, feedLines(
		`{"kind":"location","property":"Austin Central","city":"Austin","state":"TX"}`,
	))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	for _, key := range []string{"kpis:hq:all", "props:hq:14", "regsum:hq"} {
		if _, ok := cache.store[key]; ok {
			t.Errorf("stale entry %q survived the write", key)
		}
	}
	// scoped entries expire by TTL instead
	if _, ok := cache.store["props:pm:austin-central:all"]; !ok {
		t.Error("manager-scoped entry should be left alone")
	}
}

func TestIngestLines_RejectOnlyBatchKeepsCache(t *testing.T) {
	repo := &recordingRepo{}
	cache := &fakeCache{}
	ctx := context.Background()
	if err := cache.Set(ctx, "kpis:hq:all", 1, 60); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := app.NewIngestionService(repo, cache)

	res, err := svc.IngestLines(ctx, feedLines(`garbage`, `{"kind":"mystery"}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.Rejected != 2 {
		t.Fatalf("tally: %+v", res)
	}
	if _, ok := cache.store["kpis:hq:all"]; !ok {
		t.Error("nothing was written, cache must stay")
	}
}

func TestIngestLines_UpsertErrorPropagates(t *testing.T) {
	repo := &recordingRepo{upsertErr: errors.New("deadlock found when trying to get lock")}
	svc := app.NewIngestionService(repo, &fakeCache{})

	_, err := svc.IngestLines(context.Background(), feedLines(
		`{"kind":"location","property":"Austin Central","city":"Austin","state":"TX"}`,
	))
	if err == nil || !strings.Contains(err.Error(), "upsert locations") {
		t.Fatalf("expected a wrapped storage error, got %v", err)
	}
}

func TestIngestResultMerge(t *testing.T) {
	a := app.IngestResult{Locations: 1, Issues: 2, Reviews: 3, Rejected: 1}
	b := app.IngestResult{Locations: 2, Issues: 1, Rejected: 4}
	a.Merge(b)
	if a.Locations != 3 || a.Issues != 3 || a.Reviews != 3 || a.Rejected != 5 {
		t.Errorf("merge result: %+v", a)
	}
}
