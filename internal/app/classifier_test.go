package app

import (
	"testing"
	"time"

	"lakehouse_voc/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestClassifyRatioLadder(t *testing.T) {
	cases := []struct {
		share float64
		want  domain.Severity
	}{
		{0.00, domain.SeverityExcellent},
		{0.09, domain.SeverityExcellent},
		{0.10, domain.SeverityGood}, // boundary rounds severe
		{0.19, domain.SeverityGood},
		{0.20, domain.SeverityWarning},
		{0.39, domain.SeverityWarning},
		{0.40, domain.SeverityCritical},
		{0.51, domain.SeverityCritical},
		{1.00, domain.SeverityCritical},
	}
	for _, c := range cases {
		if got := Classify(c.share, 100, nil); got != c.want {
			t.Errorf("Classify(%v, 100, nil) = %v, want %v", c.share, got, c.want)
		}
	}
}

func TestClassifyMonotonicInShare(t *testing.T) {
	shares := []float64{0.0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.39, 0.4, 0.6, 0.8, 1.0}
	prev := domain.SeverityInsufficient
	for _, p := range shares {
		got := Classify(p, 50, nil)
		if got < prev {
			t.Fatalf("severity dropped from %v to %v at share %v", prev, got, p)
		}
		prev = got
	}
}

func TestClassifyWindowedPolicy(t *testing.T) {
	cases := []struct {
		name     string
		share    float64
		volume   int
		baseline float64
		want     domain.Severity
	}{
		{"extreme recent share", 0.80, 50, 0.75, domain.SeverityCritical},
		{"delta spike", 0.30, 50, 0.10, domain.SeverityCritical}, // +20pp
		{"delta exactly critical", 0.25, 50, 0.10, domain.SeverityCritical},
		{"elevated recent share", 0.60, 50, 0.55, domain.SeverityWarning},
		{"delta exactly warning", 0.20, 50, 0.10, domain.SeverityWarning},
		{"steady moderate share", 0.30, 50, 0.28, domain.SeverityGood},
		{"steady low share", 0.05, 50, 0.04, domain.SeverityExcellent},
		{"volume gate at boundary", 0.95, 7, 0.10, domain.SeverityCritical},
	}
	for _, c := range cases {
		if got := Classify(c.share, c.volume, &c.baseline); got != c.want {
			t.Errorf("%s: Classify(%v, %d, &%v) = %v, want %v", c.name, c.share, c.volume, c.baseline, got, c.want)
		}
	}
}

func TestClassifyVolumeGateSuppressesFlagging(t *testing.T) {
	baseline := 0.0
	for vol := 0; vol < minWindowVolume; vol++ {
		got := Classify(1.0, vol, &baseline)
		if got != domain.SeverityInsufficient {
			t.Errorf("volume %d: got %v, want insufficient data", vol, got)
		}
		if got.Flagged() {
			t.Errorf("volume %d flagged despite thin sample", vol)
		}
	}
}

func TestClassifyZeroVolume(t *testing.T) {
	if got := Classify(0.9, 0, nil); got != domain.SeverityInsufficient {
		t.Errorf("ratio policy with zero volume = %v, want insufficient data", got)
	}
	if domain.SeverityInsufficient.Flagged() {
		t.Error("insufficient data must never flag")
	}
}

func TestClassifyRecordTrustsLabel(t *testing.T) {
	rec := domain.IssueRecord{
		PropertyName:  "Denver Downtown",
		Aspect:        "Room Cleanliness",
		Label:         ptr("CRITICAL"),
		NegativeShare: 0.05, // ratio policy would say excellent
		Volume:        120,
		OpenedAt:      time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
	}
	if got := ClassifyRecord(rec); got != domain.SeverityCritical {
		t.Errorf("labeled record = %v, want critical", got)
	}
}

func TestClassifyRecordFallsBackOnBadLabel(t *testing.T) {
	rec := domain.IssueRecord{
		Label:         ptr("catastrophic"),
		NegativeShare: 0.45,
		Volume:        80,
	}
	if got := ClassifyRecord(rec); got != domain.SeverityCritical {
		t.Errorf("unknown label should fall back to thresholds, got %v", got)
	}
}

func TestClassifyRecordZeroVolumeIgnoresLabel(t *testing.T) {
	rec := domain.IssueRecord{
		Label:         ptr("Critical"),
		NegativeShare: 0.9,
		Volume:        0,
	}
	if got := ClassifyRecord(rec); got != domain.SeverityInsufficient {
		t.Errorf("zero-volume record = %v, want insufficient data", got)
	}
}
