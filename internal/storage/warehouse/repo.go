package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lakehouse_voc/internal/adapters/observability"
	"lakehouse_voc/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// valJSON marshals v for a nullable JSON column; nil slices and pointers
// store SQL NULL rather than the string "null".
func valJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return string(b)
}

// Repo serves the warehouse tables over database/sql. Two handles back the
// two dashboard roles: hq carries the analyst credentials, pm the
// row-limited manager credentials. pm may be nil, in which case every scope
// runs on hq (scoped queries still filter rows).
type Repo struct {
	hq     *sql.DB
	pm     *sql.DB
	driver string
}

func New(driver string, hq, pm *sql.DB) *Repo {
	return &Repo{hq: hq, pm: pm, driver: driver}
}

func (r *Repo) handleFor(scope domain.Scope) *sql.DB {
	if scope.Role == domain.RolePropertyManager && r.pm != nil {
		return r.pm
	}
	return r.hq
}

// rebind numbers the placeholders for postgres; mysql keeps '?'.
func (r *Repo) rebind(q string) string {
	if r.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *Repo) upsertSuffix(mysqlSuffix, postgresSuffix string) string {
	if r.driver == DriverPostgres {
		return postgresSuffix
	}
	return mysqlSuffix
}

/********** ingest writes **********/

func (r *Repo) UpsertLocations(ctx context.Context, ls []domain.Property) error {
	if len(ls) == 0 {
		return nil
	}
	values := make([]string, 0, len(ls))
	args := make([]any, 0, len(ls)*5)
	for _, l := range ls {
		values = append(values, locationPlaceholders)
		args = append(args, l.Name, l.City, l.State, valF64(l.Lat), valF64(l.Lon))
	}
	q := upsertLocationsPrefix + strings.Join(values, ",") + r.upsertSuffix(upsertLocationsMySQL, upsertLocationsPostgres)
	start := time.Now()
	_, err := r.hq.ExecContext(ctx, r.rebind(q), args...)
	observability.ObserveQuery("upsert_locations", err, time.Since(start))
	return err
}

func (r *Repo) UpsertIssues(ctx context.Context, is []domain.IssueRecord) error {
	if len(is) == 0 {
		return nil
	}
	values := make([]string, 0, len(is))
	args := make([]any, 0, len(is)*9)
	for _, rec := range is {
		values = append(values, issuePlaceholders)
		args = append(args,
			rec.PropertyName,
			rec.Aspect,
			valStr(rec.Label),
			rec.NegativeShare,
			rec.Volume,
			valF64(rec.BaselineShare),
			rec.OpenedAt,
			rec.OpenReason,
			valJSON(rec.Narrative),
		)
	}
	q := upsertIssuesPrefix + strings.Join(values, ",") + r.upsertSuffix(upsertIssuesMySQL, upsertIssuesPostgres)
	start := time.Now()
	_, err := r.hq.ExecContext(ctx, r.rebind(q), args...)
	observability.ObserveQuery("upsert_issues", err, time.Since(start))
	return err
}

func (r *Repo) UpsertReviewFacts(ctx context.Context, rs []domain.ReviewFact) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*10)
	for _, f := range rs {
		values = append(values, factPlaceholders)
		args = append(args,
			f.ReviewID,
			f.PropertyName,
			f.Aspect,
			f.Sentiment,
			valF64(f.StarRating),
			f.ReviewDate,
			valStr(f.Channel),
			valStr(f.Text),
			valJSON(f.Evidence),
			valJSON(f.OpinionTerms),
		)
	}
	q := upsertFactsPrefix + strings.Join(values, ",") + r.upsertSuffix(upsertFactsMySQL, upsertFactsPostgres)
	start := time.Now()
	_, err := r.hq.ExecContext(ctx, r.rebind(q), args...)
	observability.ObserveQuery("upsert_review_facts", err, time.Since(start))
	return err
}

func (r *Repo) LogReject(ctx context.Context, id string, line int, reason string) error {
	start := time.Now()
	_, err := r.hq.ExecContext(ctx, r.rebind(insertRejectSQL), id, line, reason)
	observability.ObserveQuery("log_reject", err, time.Since(start))
	return err
}

/********** dashboard reads **********/

func (r *Repo) ListLocations(ctx context.Context, scope domain.Scope) ([]domain.Property, error) {
	q, args := listLocationsSQL, []any(nil)
	if scope.Role == domain.RolePropertyManager && scope.PropertyID != "" {
		q, args = listLocationsScopedSQL, []any{scope.PropertyID}
	}
	start := time.Now()
	rows, err := r.handleFor(scope).QueryContext(ctx, r.rebind(q), args...)
	observability.ObserveQuery("list_locations", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		var p domain.Property
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&p.Name, &p.City, &p.State, &lat, &lon); err != nil {
			return nil, err
		}
		if lat.Valid {
			v := lat.Float64
			p.Lat = &v
		}
		if lon.Valid {
			v := lon.Float64
			p.Lon = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListIssues(ctx context.Context, scope domain.Scope) ([]domain.IssueRecord, error) {
	q, args := listIssuesSQL, []any(nil)
	if scope.Role == domain.RolePropertyManager && scope.PropertyID != "" {
		q, args = listIssuesScopedSQL, []any{scope.PropertyID}
	}
	start := time.Now()
	rows, err := r.handleFor(scope).QueryContext(ctx, r.rebind(q), args...)
	observability.ObserveQuery("list_issues", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IssueRecord
	for rows.Next() {
		var rec domain.IssueRecord
		var label sql.NullString
		var baseline sql.NullFloat64
		var narrative []byte
		if err := rows.Scan(
			&rec.PropertyName,
			&rec.Aspect,
			&label,
			&rec.NegativeShare,
			&rec.Volume,
			&baseline,
			&rec.OpenedAt,
			&rec.OpenReason,
			&narrative,
		); err != nil {
			return nil, err
		}
		if label.Valid {
			s := label.String
			rec.Label = &s
		}
		if baseline.Valid {
			v := baseline.Float64
			rec.BaselineShare = &v
		}
		if len(narrative) > 0 {
			var n domain.Narrative
			if err := json.Unmarshal(narrative, &n); err == nil && n != (domain.Narrative{}) {
				rec.Narrative = &n
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviewFacts(ctx context.Context, scope domain.Scope, propertyName, aspect string) ([]domain.ReviewFact, error) {
	start := time.Now()
	rows, err := r.handleFor(scope).QueryContext(ctx, r.rebind(listFactsSQL), propertyName, aspect)
	observability.ObserveQuery("list_review_facts", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReviewFact
	for rows.Next() {
		var f domain.ReviewFact
		var star sql.NullFloat64
		var channel, text sql.NullString
		var evidence, terms []byte
		if err := rows.Scan(
			&f.ReviewID,
			&f.PropertyName,
			&f.Aspect,
			&f.Sentiment,
			&star,
			&f.ReviewDate,
			&channel,
			&text,
			&evidence,
			&terms,
		); err != nil {
			return nil, err
		}
		if star.Valid {
			v := star.Float64
			f.StarRating = &v
		}
		if channel.Valid {
			s := channel.String
			f.Channel = &s
		}
		if text.Valid {
			s := text.String
			f.Text = &s
		}
		if len(evidence) > 0 {
			_ = json.Unmarshal(evidence, &f.Evidence)
		}
		if len(terms) > 0 {
			_ = json.Unmarshal(terms, &f.OpinionTerms)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviewDailyCounts(ctx context.Context, scope domain.Scope) ([]domain.DailyReviewCount, error) {
	q, args := listDailyCountsSQL, []any(nil)
	if scope.Role == domain.RolePropertyManager && scope.PropertyID != "" {
		q, args = listDailyCountsScopedSQL, []any{scope.PropertyID}
	}
	start := time.Now()
	rows, err := r.handleFor(scope).QueryContext(ctx, r.rebind(q), args...)
	observability.ObserveQuery("list_daily_counts", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyReviewCount
	for rows.Next() {
		var d domain.DailyReviewCount
		if err := rows.Scan(&d.Day, &d.Reviews, &d.Negative); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
