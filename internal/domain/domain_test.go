package domain_test

import (
	"testing"
	"time"

	"lakehouse_voc/internal/domain"
)

func TestPropertyID_Deterministic(t *testing.T) {
	cases := map[string]string{
		"Denver, CO":        "denver-co",
		"Austin, TX":        "austin-tx",
		"Salt Lake City, UT": "salt-lake-city-ut",
		"Miami Beach":       "miami-beach",
	}
	for name, want := range cases {
		if got := domain.PropertyID(name); got != want {
			t.Fatalf("PropertyID(%q) = %q, want %q", name, got, want)
		}
		// pure: repeated calls agree
		if domain.PropertyID(name) != domain.PropertyID(name) {
			t.Fatalf("PropertyID(%q) not deterministic", name)
		}
	}
}

func TestParseSeverity_CaseInsensitive(t *testing.T) {
	for _, in := range []string{"Critical", "critical", "CRITICAL", " critical "} {
		s, ok := domain.ParseSeverity(in)
		if !ok || s != domain.SeverityCritical {
			t.Fatalf("ParseSeverity(%q) = %v,%v", in, s, ok)
		}
	}
	if _, ok := domain.ParseSeverity("catastrophic"); ok {
		t.Fatalf("unknown label should not parse")
	}
	if _, ok := domain.ParseSeverity(""); ok {
		t.Fatalf("empty label should not parse")
	}
}

func TestSeverity_OrderingAndFlags(t *testing.T) {
	order := []domain.Severity{
		domain.SeverityInsufficient,
		domain.SeverityExcellent,
		domain.SeverityGood,
		domain.SeverityWarning,
		domain.SeverityCritical,
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Fatalf("severity ordering broken at %v", order[i])
		}
	}
	if domain.SeverityGood.Flagged() || domain.SeverityInsufficient.Flagged() {
		t.Fatalf("good/insufficient must not flag")
	}
	if !domain.SeverityWarning.Flagged() || !domain.SeverityCritical.Flagged() {
		t.Fatalf("warning/critical must flag")
	}
}

func TestParseWindow(t *testing.T) {
	def := domain.TrailingDays(14)

	w, err := domain.ParseWindow("", def)
	if err != nil || w.Days != 14 {
		t.Fatalf("empty should take default, got %+v err=%v", w, err)
	}
	w, err = domain.ParseWindow("all", def)
	if err != nil || !w.Unbounded() {
		t.Fatalf("all should be unbounded, got %+v err=%v", w, err)
	}
	w, err = domain.ParseWindow("7", def)
	if err != nil || w.Days != 7 {
		t.Fatalf("numeric parse failed: %+v err=%v", w, err)
	}
	for _, bad := range []string{"0", "-3", "soon"} {
		if _, err := domain.ParseWindow(bad, def); err == nil {
			t.Fatalf("ParseWindow(%q) should fail", bad)
		}
	}
}

func TestWindow_ContainsAnchorsToLatest(t *testing.T) {
	latest := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	w := domain.TrailingDays(7)

	inside := latest.AddDate(0, 0, -7) // boundary lands inside (>= cutoff)
	outside := latest.AddDate(0, 0, -8)

	if !w.Contains(latest, inside) {
		t.Fatalf("boundary date should be inside the window")
	}
	if w.Contains(latest, outside) {
		t.Fatalf("date before cutoff should be outside the window")
	}
	if !domain.AllTime.Contains(latest, outside) {
		t.Fatalf("unbounded window contains everything")
	}
}

func TestScopeKey(t *testing.T) {
	if (domain.Scope{}).Key() != "hq" {
		t.Fatalf("zero scope should key as hq")
	}
	s := domain.Scope{Role: domain.RolePropertyManager, PropertyID: "austin-tx"}
	if s.Key() != "pm:austin-tx" {
		t.Fatalf("pm scope key: %s", s.Key())
	}
}
