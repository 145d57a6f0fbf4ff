package app_test

import (
	"context"
	"strings"
	"testing"

	"lakehouse_voc/internal/domain"
)

func TestDraftEmail_CriticalIssue(t *testing.T) {
	q := newService(twoPropertyRepo())

	draft, err := q.DraftEmail(context.Background(), hq, "austin-central", domain.AllTime)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if draft == nil {
		t.Fatal("expected a draft")
	}
	if draft.Subject != "Urgent Action Required - WiFi Connectivity Issues at Austin Central Property" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if draft.Severity != "critical" || draft.PrimaryIssue != "WiFi Connectivity" {
		t.Errorf("severity/primary = %q/%q", draft.Severity, draft.PrimaryIssue)
	}
	if !strings.Contains(draft.Body, "a critical issue requiring immediate attention") {
		t.Errorf("body missing critical phrasing:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "1. Upgrade to enterprise-grade WiFi equipment") {
		t.Errorf("body missing numbered runbook actions:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "Lakehouse Inn Voice of Customer Analytics Team") {
		t.Errorf("body missing sign-off:\n%s", draft.Body)
	}
}

func TestDraftEmail_WarningIssue(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Miami Beach", City: "Miami", State: "FL"}},
		issues: []domain.IssueRecord{{
			PropertyName:  "Miami Beach",
			Aspect:        "Staff Service",
			NegativeShare: 0.25,
			Volume:        70,
			OpenedAt:      day("2025-06-08"),
		}},
	}
	q := newService(repo)

	draft, _ := q.DraftEmail(context.Background(), hq, "miami-beach", domain.AllTime)
	if draft.Subject != "Attention Required - Staff Service Issues at Miami Beach Property" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if draft.Severity != "attention" {
		t.Errorf("severity = %q", draft.Severity)
	}
	if !strings.Contains(draft.Body, "an issue requiring prompt attention") {
		t.Errorf("body missing warning phrasing:\n%s", draft.Body)
	}
}

func TestDraftEmail_CriticalOutranksWorseWarning(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Denver Downtown", City: "Denver", State: "CO"}},
		issues: []domain.IssueRecord{
			// warning with a larger share than the labeled critical
			{PropertyName: "Denver Downtown", Aspect: "Noise Levels", NegativeShare: 0.30, Volume: 90, OpenedAt: day("2025-06-09")},
			{PropertyName: "Denver Downtown", Aspect: "Room Cleanliness", Label: ptr("Critical"), NegativeShare: 0.05, Volume: 100, OpenedAt: day("2025-06-08")},
		},
	}
	q := newService(repo)

	draft, _ := q.DraftEmail(context.Background(), hq, "denver-downtown", domain.AllTime)
	if draft.PrimaryIssue != "Room Cleanliness" || draft.Severity != "critical" {
		t.Errorf("critical must outrank a worse warning, got %q/%q", draft.PrimaryIssue, draft.Severity)
	}
}

func TestDraftEmail_PraiseForHealthyProperty(t *testing.T) {
	repo := &fakeRepo{
		locations: []domain.Property{{Name: "Seattle Waterfront", City: "Seattle", State: "WA"}},
		issues: []domain.IssueRecord{
			{PropertyName: "Seattle Waterfront", Aspect: "Staff Service", NegativeShare: 0.03, Volume: 80, OpenedAt: day("2025-06-09")},
			{PropertyName: "Seattle Waterfront", Aspect: "Amenities", NegativeShare: 0.12, Volume: 40, OpenedAt: day("2025-06-08")},
		},
	}
	q := newService(repo)

	draft, err := q.DraftEmail(context.Background(), hq, "seattle-waterfront", domain.AllTime)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if draft.Severity != "positive" || draft.PrimaryIssue != "" {
		t.Errorf("severity/primary = %q/%q", draft.Severity, draft.PrimaryIssue)
	}
	if draft.Subject != "Property Performance Update - Seattle Waterfront" {
		t.Errorf("subject = %q", draft.Subject)
	}
	if !strings.Contains(draft.Body, "- Staff Service: 3.0% negative reviews (Excellent)") {
		t.Errorf("body missing per-aspect line:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "- Amenities: 12.0% negative reviews (Good)") {
		t.Errorf("body missing per-aspect line:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "Total Reviews Analyzed: 120") {
		t.Errorf("body missing review total:\n%s", draft.Body)
	}
}

func TestDraftEmail_PraiseWithoutData(t *testing.T) {
	repo := &fakeRepo{locations: []domain.Property{{Name: "Boston Harborside", City: "Boston", State: "MA"}}}
	q := newService(repo)

	draft, _ := q.DraftEmail(context.Background(), hq, "boston-harborside", domain.AllTime)
	if draft.Severity != "positive" {
		t.Errorf("severity = %q", draft.Severity)
	}
	if !strings.Contains(draft.Body, "No open issues on record for this property") {
		t.Errorf("body missing empty-state line:\n%s", draft.Body)
	}
}

func TestDraftEmail_UnknownProperty(t *testing.T) {
	q := newService(twoPropertyRepo())

	draft, err := q.DraftEmail(context.Background(), hq, "grand-phantom", domain.AllTime)
	if err != nil {
		t.Fatalf("unknown property must not error: %v", err)
	}
	if draft != nil {
		t.Errorf("expected nil draft, got %+v", draft)
	}
}
