package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/refdata"
)

// defaultSatisfaction is the documented placeholder score returned when no
// classified aspects exist to average over.
const defaultSatisfaction = 85.0

// DiagnosticsService is the aggregation engine behind the dashboard: it
// joins the property directory with classified issue rows under a time
// window and memoizes every shape in a TTL cache. Operations never fail;
// when the warehouse is unreachable they serve the embedded placeholder
// dataset instead.
type DiagnosticsService struct {
	repo     domain.WarehouseRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewDiagnosticsService(r domain.WarehouseRepository, c domain.Cache, ttl time.Duration) *DiagnosticsService {
	return &DiagnosticsService{repo: r, cache: c, cacheTTL: ttl}
}

// snapshot is the directory + issue rows every aggregation starts from.
// placeholder marks that the warehouse was unreachable and the embedded
// demo dataset was substituted.
type snapshot struct {
	locations   []domain.Property
	issues      []domain.IssueRecord
	placeholder bool
}

// fetchSnapshot is the explicit fetch-or-default step: any read error
// degrades to the placeholder dataset, logged, never propagated.
func (s *DiagnosticsService) fetchSnapshot(ctx context.Context, scope domain.Scope) snapshot {
	locs, err := s.repo.ListLocations(ctx, scope)
	if err == nil {
		var issues []domain.IssueRecord
		if issues, err = s.repo.ListIssues(ctx, scope); err == nil {
			return snapshot{locations: locs, issues: issues}
		}
	}
	log.Warn().Err(err).Str("scope", scope.Key()).Msg("warehouse unreachable, serving placeholder dataset")
	return placeholderSnapshot(scope)
}

func placeholderSnapshot(scope domain.Scope) snapshot {
	snap := snapshot{
		locations:   refdata.PlaceholderLocations(),
		issues:      refdata.PlaceholderIssues(),
		placeholder: true,
	}
	if scope.Role != domain.RolePropertyManager || scope.PropertyID == "" {
		return snap
	}
	var locs []domain.Property
	for _, l := range snap.locations {
		if domain.PropertyID(l.Name) == scope.PropertyID {
			locs = append(locs, l)
		}
	}
	var issues []domain.IssueRecord
	for _, is := range snap.issues {
		if domain.PropertyID(is.PropertyName) == scope.PropertyID {
			issues = append(issues, is)
		}
	}
	snap.locations, snap.issues = locs, issues
	return snap
}

// fetchDaily returns the day-grained review counts. A failure here is not a
// full outage when the snapshot already loaded, so it falls back to "no
// review rows" and lets the KPI math count issue rows instead.
func (s *DiagnosticsService) fetchDaily(ctx context.Context, scope domain.Scope, snap snapshot) []domain.DailyReviewCount {
	if snap.placeholder {
		return refdata.PlaceholderDailyReviews()
	}
	daily, err := s.repo.ListReviewDailyCounts(ctx, scope)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope.Key()).Msg("review facts unavailable, counting issue rows")
		return nil
	}
	return daily
}

func (s *DiagnosticsService) cacheSet(ctx context.Context, key string, v any) {
	// size guard: never cache anything a megabyte or larger
	if b, _ := json.Marshal(v); len(b) >= 1_000_000 {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
}

// ListAllProperties returns one view per directory entry, whatever the
// issue table holds: output length always equals directory length.
func (s *DiagnosticsService) ListAllProperties(ctx context.Context, scope domain.Scope, w domain.Window) ([]domain.PropertyView, error) {
	key := fmt.Sprintf("props:%s:%s", scope.Key(), w.Key())
	var out []domain.PropertyView
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	out = buildPropertyViews(snap, w)
	s.cacheSet(ctx, key, out)
	return out, nil
}

// FlaggedProperties returns the flagged set flattened one row per
// (property, aspect).
func (s *DiagnosticsService) FlaggedProperties(ctx context.Context, scope domain.Scope, w domain.Window) ([]domain.FlaggedAspect, error) {
	key := fmt.Sprintf("flagged:%s:%s", scope.Key(), w.Key())
	var out []domain.FlaggedAspect
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	byProperty := worstPerAspect(issuesInWindow(snap.issues, w))
	out = []domain.FlaggedAspect{}
	for _, loc := range snap.locations {
		for _, r := range byProperty[loc.Name] {
			sev := ClassifyRecord(r)
			if !sev.Flagged() {
				continue
			}
			out = append(out, domain.FlaggedAspect{
				Property:           loc.Name,
				PropertyID:         domain.PropertyID(loc.Name),
				Aspect:             r.Aspect,
				NegativePercentage: r.NegativeShare * 100,
				Status:             sev.String(),
			})
		}
	}
	s.cacheSet(ctx, key, out)
	return out, nil
}

// FlaggedPropertiesGrouped bundles the flagged set per property under a
// max-wins severity: critical if any member aspect is critical.
func (s *DiagnosticsService) FlaggedPropertiesGrouped(ctx context.Context, scope domain.Scope, w domain.Window) (map[string]domain.FlaggedGroup, error) {
	key := fmt.Sprintf("grouped:%s:%s", scope.Key(), w.Key())
	var out map[string]domain.FlaggedGroup
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	out = buildFlaggedGroups(snap.locations, worstPerAspect(issuesInWindow(snap.issues, w)))
	s.cacheSet(ctx, key, out)
	return out, nil
}

// PropertiesByRegionAndSeverity buckets the grouped flagged set by region,
// canonical region order first, leftovers by descending size.
func (s *DiagnosticsService) PropertiesByRegionAndSeverity(ctx context.Context, scope domain.Scope, w domain.Window) ([]domain.RegionBucket, error) {
	key := fmt.Sprintf("regions:%s:%s", scope.Key(), w.Key())
	var out []domain.RegionBucket
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	groups := buildFlaggedGroups(snap.locations, worstPerAspect(issuesInWindow(snap.issues, w)))
	out = buildRegionBuckets(snap.locations, groups)
	s.cacheSet(ctx, key, out)
	return out, nil
}

// HealthyPropertiesGrouped partitions the non-flagged directory into
// healthy (has data, nothing flagged) and no_reviews (no data at all).
func (s *DiagnosticsService) HealthyPropertiesGrouped(ctx context.Context, scope domain.Scope, w domain.Window) (domain.HealthSplit, error) {
	key := fmt.Sprintf("healthy:%s:%s", scope.Key(), w.Key())
	var out domain.HealthSplit
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	byProperty := worstPerAspect(issuesInWindow(snap.issues, w))
	out = domain.HealthSplit{Healthy: []domain.PropertyCard{}, NoReviews: []domain.PropertyCard{}}
	for _, loc := range snap.locations {
		recs := byProperty[loc.Name]
		flagged := false
		for _, r := range recs {
			if ClassifyRecord(r).Flagged() {
				flagged = true
				break
			}
		}
		if flagged {
			continue
		}
		card := domain.PropertyCard{
			Name:       loc.Name,
			PropertyID: domain.PropertyID(loc.Name),
			City:       loc.City,
			State:      loc.State,
		}
		if len(recs) > 0 {
			out.Healthy = append(out.Healthy, card)
		} else {
			out.NoReviews = append(out.NoReviews, card)
		}
	}
	s.cacheSet(ctx, key, out)
	return out, nil
}

// DiagnosticsKPIs is the headline rollup. The directory is the denominator
// so totals stay stable even with an empty issue table.
func (s *DiagnosticsService) DiagnosticsKPIs(ctx context.Context, scope domain.Scope, w domain.Window) (domain.KPISummary, error) {
	key := fmt.Sprintf("kpis:%s:%s", scope.Key(), w.Key())
	var out domain.KPISummary
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	daily := s.fetchDaily(ctx, scope, snap)
	out = buildKPIs(snap, daily, w)
	s.cacheSet(ctx, key, out)
	return out, nil
}

// TrendData is the per-day negative-share series for the window.
func (s *DiagnosticsService) TrendData(ctx context.Context, scope domain.Scope, w domain.Window) ([]domain.TrendPoint, error) {
	key := fmt.Sprintf("trends:%s:%s", scope.Key(), w.Key())
	var out []domain.TrendPoint
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	daily, err := s.repo.ListReviewDailyCounts(ctx, scope)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope.Key()).Msg("warehouse unreachable, serving placeholder dataset")
		daily = refdata.PlaceholderDailyReviews()
	}
	out = buildTrendSeries(daily, w)
	s.cacheSet(ctx, key, out)
	return out, nil
}

// RegionalSummary is the unwindowed per-region rollup for the comparison
// chart: directory count, flagged count and mean negative share per region.
func (s *DiagnosticsService) RegionalSummary(ctx context.Context, scope domain.Scope) ([]domain.RegionPerformance, error) {
	key := fmt.Sprintf("regsum:%s", scope.Key())
	var out []domain.RegionPerformance
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	out = buildRegionalSummary(snap)
	s.cacheSet(ctx, key, out)
	return out, nil
}

/********** aggregation internals **********/

// worstPerAspect dedupes issue rows per (property, aspect) keeping the
// highest negative share, then orders each property's records worst first.
func worstPerAspect(issues []domain.IssueRecord) map[string][]domain.IssueRecord {
	best := map[string]map[string]domain.IssueRecord{}
	for _, is := range issues {
		byAspect := best[is.PropertyName]
		if byAspect == nil {
			byAspect = map[string]domain.IssueRecord{}
			best[is.PropertyName] = byAspect
		}
		if cur, ok := byAspect[is.Aspect]; !ok || is.NegativeShare > cur.NegativeShare {
			byAspect[is.Aspect] = is
		}
	}
	out := make(map[string][]domain.IssueRecord, len(best))
	for name, byAspect := range best {
		recs := make([]domain.IssueRecord, 0, len(byAspect))
		for _, r := range byAspect {
			recs = append(recs, r)
		}
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].NegativeShare != recs[j].NegativeShare {
				return recs[i].NegativeShare > recs[j].NegativeShare
			}
			return recs[i].Aspect < recs[j].Aspect
		})
		out[name] = recs
	}
	return out
}

func latestOpenedAt(issues []domain.IssueRecord) time.Time {
	var latest time.Time
	for _, is := range issues {
		if is.OpenedAt.After(latest) {
			latest = is.OpenedAt
		}
	}
	return latest
}

func latestReviewDay(daily []domain.DailyReviewCount) time.Time {
	var latest time.Time
	for _, d := range daily {
		if d.Day.After(latest) {
			latest = d.Day
		}
	}
	return latest
}

func issuesInWindow(issues []domain.IssueRecord, w domain.Window) []domain.IssueRecord {
	if w.Unbounded() {
		return issues
	}
	latest := latestOpenedAt(issues)
	out := make([]domain.IssueRecord, 0, len(issues))
	for _, is := range issues {
		if w.Contains(latest, is.OpenedAt) {
			out = append(out, is)
		}
	}
	return out
}

// issuesBetween selects rows with from <= opened_at < before.
func issuesBetween(issues []domain.IssueRecord, from, before time.Time) []domain.IssueRecord {
	out := make([]domain.IssueRecord, 0, len(issues))
	for _, is := range issues {
		if !is.OpenedAt.Before(from) && is.OpenedAt.Before(before) {
			out = append(out, is)
		}
	}
	return out
}

func issuesSince(issues []domain.IssueRecord, from time.Time) []domain.IssueRecord {
	out := make([]domain.IssueRecord, 0, len(issues))
	for _, is := range issues {
		if !is.OpenedAt.Before(from) {
			out = append(out, is)
		}
	}
	return out
}

func dailyInWindow(daily []domain.DailyReviewCount, w domain.Window) []domain.DailyReviewCount {
	latest := latestReviewDay(daily)
	out := make([]domain.DailyReviewCount, 0, len(daily))
	for _, d := range daily {
		if w.Contains(latest, d.Day) {
			out = append(out, d)
		}
	}
	return out
}

func dailyBetween(daily []domain.DailyReviewCount, from, before time.Time) []domain.DailyReviewCount {
	out := make([]domain.DailyReviewCount, 0, len(daily))
	for _, d := range daily {
		if !d.Day.Before(from) && d.Day.Before(before) {
			out = append(out, d)
		}
	}
	return out
}

func buildPropertyViews(snap snapshot, w domain.Window) []domain.PropertyView {
	byProperty := worstPerAspect(issuesInWindow(snap.issues, w))
	out := make([]domain.PropertyView, 0, len(snap.locations))
	for _, loc := range snap.locations {
		pv := domain.PropertyView{
			Property:   loc.Name,
			PropertyID: domain.PropertyID(loc.Name),
			City:       loc.City,
			State:      loc.State,
			Aspects:    []domain.AspectStatus{},
			TopTheme:   "no_issues",
		}
		pv.Lat, pv.Lon = locationCoords(loc)
		recs := byProperty[loc.Name]
		if len(recs) > 0 {
			pv.HasIssues = true
			// records are ordered worst first, so the top theme is recs[0]
			pv.TopTheme = recs[0].OpenReason
			for _, r := range recs {
				pv.Aspects = append(pv.Aspects, domain.AspectStatus{
					Name:               r.Aspect,
					NegativePercentage: r.NegativeShare * 100,
					Status:             ClassifyRecord(r).String(),
				})
			}
		}
		out = append(out, pv)
	}
	return out
}

func locationCoords(p domain.Property) (float64, float64) {
	if p.Lat != nil && p.Lon != nil && (*p.Lat != 0 || *p.Lon != 0) {
		return *p.Lat, *p.Lon
	}
	return refdata.CityCoordinates(p.City, p.State)
}

func buildFlaggedGroups(locations []domain.Property, byProperty map[string][]domain.IssueRecord) map[string]domain.FlaggedGroup {
	groups := map[string]domain.FlaggedGroup{}
	for _, loc := range locations {
		var aspects []domain.AspectStatus
		worst := domain.SeverityInsufficient
		for _, r := range byProperty[loc.Name] {
			sev := ClassifyRecord(r)
			if !sev.Flagged() {
				continue
			}
			aspects = append(aspects, domain.AspectStatus{
				Name:               r.Aspect,
				NegativePercentage: r.NegativeShare * 100,
				Status:             sev.String(),
			})
			if sev > worst {
				worst = sev
			}
		}
		if len(aspects) == 0 {
			continue
		}
		id := domain.PropertyID(loc.Name)
		groups[id] = domain.FlaggedGroup{
			Property:   loc.Name,
			PropertyID: id,
			City:       loc.City,
			State:      loc.State,
			Aspects:    aspects,
			Severity:   worst.String(),
		}
	}
	return groups
}

type regionBucketAcc struct {
	critical []domain.FlaggedGroup
	warning  []domain.FlaggedGroup
}

func buildRegionBuckets(locations []domain.Property, groups map[string]domain.FlaggedGroup) []domain.RegionBucket {
	byRegion := map[string]*regionBucketAcc{}
	for _, loc := range locations {
		g, ok := groups[domain.PropertyID(loc.Name)]
		if !ok {
			continue
		}
		region := refdata.RegionFor(loc.City)
		b := byRegion[region]
		if b == nil {
			b = &regionBucketAcc{}
			byRegion[region] = b
		}
		if g.Severity == domain.SeverityCritical.String() {
			b.critical = append(b.critical, g)
		} else {
			b.warning = append(b.warning, g)
		}
	}

	out := []domain.RegionBucket{}
	canonical := map[string]bool{}
	for _, region := range refdata.CanonicalRegions() {
		canonical[region] = true
		if b := byRegion[region]; b != nil {
			out = append(out, regionBucketView(region, b))
		}
	}
	// leftover regions outside the canonical list, largest first
	var rest []string
	for region := range byRegion {
		if !canonical[region] {
			rest = append(rest, region)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		bi, bj := byRegion[rest[i]], byRegion[rest[j]]
		ti, tj := len(bi.critical)+len(bi.warning), len(bj.critical)+len(bj.warning)
		if ti != tj {
			return ti > tj
		}
		return rest[i] < rest[j]
	})
	for _, region := range rest {
		out = append(out, regionBucketView(region, byRegion[region]))
	}
	return out
}

func regionBucketView(region string, b *regionBucketAcc) domain.RegionBucket {
	out := domain.RegionBucket{Region: region, Critical: b.critical, Warning: b.warning}
	if out.Critical == nil {
		out.Critical = []domain.FlaggedGroup{}
	}
	if out.Warning == nil {
		out.Warning = []domain.FlaggedGroup{}
	}
	return out
}

// kpiCore carries the pieces of the rollup that trends recompute for the
// preceding window.
type kpiCore struct {
	flagged      int
	classified   int
	aspects      int
	avgShare     float64
	satisfaction float64
}

func kpiCoreFrom(locations []domain.Property, issues []domain.IssueRecord) kpiCore {
	byProperty := worstPerAspect(issues)
	var core kpiCore
	var sum float64
	aspectSet := map[string]struct{}{}
	for _, loc := range locations {
		anyFlagged := false
		for _, r := range byProperty[loc.Name] {
			sum += r.NegativeShare * 100
			core.classified++
			aspectSet[r.Aspect] = struct{}{}
			if ClassifyRecord(r).Flagged() {
				anyFlagged = true
			}
		}
		if anyFlagged {
			core.flagged++
		}
	}
	core.aspects = len(aspectSet)
	if core.classified == 0 {
		core.satisfaction = defaultSatisfaction
		return core
	}
	core.avgShare = sum / float64(core.classified)
	core.satisfaction = clamp(100-core.avgShare, 0, 100)
	return core
}

func buildKPIs(snap snapshot, daily []domain.DailyReviewCount, w domain.Window) domain.KPISummary {
	cur := issuesInWindow(snap.issues, w)
	core := kpiCoreFrom(snap.locations, cur)
	out := domain.KPISummary{
		TotalProperties:     len(snap.locations),
		PropertiesFlagged:   core.flagged,
		AvgNegativeShare:    core.avgShare,
		OverallSatisfaction: core.satisfaction,
		AspectsWithIssues:   core.aspects,
		TotalAspects:        refdata.RunbookSize(),
		Trends:              buildTrends(snap, daily, w),
	}
	windowed := dailyInWindow(daily, w)
	if len(windowed) > 0 {
		for _, d := range windowed {
			out.ReviewsProcessed += d.Reviews
		}
	} else {
		out.ReviewsProcessed = len(cur)
	}
	return out
}

// buildTrends compares the window against the immediately preceding window
// of equal length. Deltas stay zero when the window is unbounded or the
// prior window holds no data.
func buildTrends(snap snapshot, daily []domain.DailyReviewCount, w domain.Window) domain.KPITrends {
	var out domain.KPITrends
	if w.Unbounded() {
		return out
	}

	if latest := latestOpenedAt(snap.issues); !latest.IsZero() {
		curFrom := w.CutoffFrom(latest)
		prevFrom := curFrom.AddDate(0, 0, -w.Days)
		cur := kpiCoreFrom(snap.locations, issuesSince(snap.issues, curFrom))
		prev := kpiCoreFrom(snap.locations, issuesBetween(snap.issues, prevFrom, curFrom))
		if prev.classified > 0 {
			out.FlaggedPropertiesChange = cur.flagged - prev.flagged
			out.SatisfactionChange = cur.satisfaction - prev.satisfaction
		}
	}

	if latest := latestReviewDay(daily); !latest.IsZero() {
		curFrom := w.CutoffFrom(latest)
		prevFrom := curFrom.AddDate(0, 0, -w.Days)
		curShare, curOK := negativeShareOf(dailySince(daily, curFrom))
		prevShare, prevOK := negativeShareOf(dailyBetween(daily, prevFrom, curFrom))
		if curOK && prevOK {
			out.NegativeReviewsChange = curShare - prevShare
		}
	}
	return out
}

func dailySince(daily []domain.DailyReviewCount, from time.Time) []domain.DailyReviewCount {
	out := make([]domain.DailyReviewCount, 0, len(daily))
	for _, d := range daily {
		if !d.Day.Before(from) {
			out = append(out, d)
		}
	}
	return out
}

// negativeShareOf returns the pooled negative percentage of a day set; ok
// is false when the set holds no reviews to divide by.
func negativeShareOf(daily []domain.DailyReviewCount) (float64, bool) {
	var reviews, negative int
	for _, d := range daily {
		reviews += d.Reviews
		negative += d.Negative
	}
	if reviews == 0 {
		return 0, false
	}
	return float64(negative) / float64(reviews) * 100, true
}

func buildTrendSeries(daily []domain.DailyReviewCount, w domain.Window) []domain.TrendPoint {
	rows := dailyInWindow(daily, w)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day.Before(rows[j].Day) })
	out := make([]domain.TrendPoint, 0, len(rows))
	for _, d := range rows {
		tp := domain.TrendPoint{
			Day:           d.Day.Format("2006-01-02"),
			Reviews:       d.Reviews,
			NegativeCount: d.Negative,
		}
		if d.Reviews > 0 {
			tp.NegativeShare = float64(d.Negative) / float64(d.Reviews) * 100
		}
		tp.Satisfaction = clamp(100-tp.NegativeShare, 0, 100)
		out = append(out, tp)
	}
	return out
}

func buildRegionalSummary(snap snapshot) []domain.RegionPerformance {
	byProperty := worstPerAspect(snap.issues)
	groups := buildFlaggedGroups(snap.locations, byProperty)

	type acc struct {
		total, flagged, classified int
		shareSum                   float64
	}
	byRegion := map[string]*acc{}
	for _, loc := range snap.locations {
		region := refdata.RegionFor(loc.City)
		a := byRegion[region]
		if a == nil {
			a = &acc{}
			byRegion[region] = a
		}
		a.total++
		if _, ok := groups[domain.PropertyID(loc.Name)]; ok {
			a.flagged++
		}
		for _, r := range byProperty[loc.Name] {
			a.shareSum += r.NegativeShare * 100
			a.classified++
		}
	}

	out := []domain.RegionPerformance{}
	for _, region := range refdata.CanonicalRegions() {
		a := byRegion[region]
		if a == nil {
			continue
		}
		rp := domain.RegionPerformance{Region: region, Total: a.total, Flagged: a.flagged}
		if a.classified > 0 {
			rp.NegativeShare = a.shareSum / float64(a.classified)
			rp.Satisfaction = clamp(100-rp.NegativeShare, 0, 100)
		} else {
			rp.Satisfaction = defaultSatisfaction
		}
		out = append(out, rp)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
