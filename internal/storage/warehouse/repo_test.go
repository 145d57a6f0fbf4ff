package warehouse

import (
	"testing"

	"lakehouse_voc/internal/domain"
)

func TestRebindNumbersPlaceholdersForPostgres(t *testing.T) {
	pg := New(DriverPostgres, nil, nil)
	got := pg.rebind("INSERT INTO t (a, b) VALUES (?,?),(?,?)")
	want := "INSERT INTO t (a, b) VALUES ($1,$2),($3,$4)"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}

	my := New(DriverMySQL, nil, nil)
	if got := my.rebind("SELECT ?"); got != "SELECT ?" {
		t.Fatalf("mysql rebind should be a no-op, got %q", got)
	}
}

func TestValJSONDistinguishesNilFromEmpty(t *testing.T) {
	if v := valJSON([]string(nil)); v != nil {
		t.Fatalf("nil slice should store NULL, got %v", v)
	}
	if v := valJSON([]string{}); v != "[]" {
		t.Fatalf("empty slice should store [], got %v", v)
	}
	var n *domain.Narrative
	if v := valJSON(n); v != nil {
		t.Fatalf("nil narrative should store NULL, got %v", v)
	}
	v := valJSON(&domain.Narrative{Summary: "s"})
	s, ok := v.(string)
	if !ok || s != `{"summary":"s","root_cause":"","impact":"","recommendation":""}` {
		t.Fatalf("unexpected narrative payload: %v", v)
	}
}
