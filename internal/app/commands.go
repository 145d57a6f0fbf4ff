package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lakehouse_voc/internal/domain"
)

// IngestionService replays feed lines into the warehouse. The dashboard
// reads are served elsewhere; this is the only writer.
type IngestionService struct {
	repo  domain.WarehouseRepository
	cache domain.Cache
}

func NewIngestionService(r domain.WarehouseRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{repo: r, cache: cache}
}

// FeedLine is one raw line of the replay file paired with its 1-based
// position for reject bookkeeping.
type FeedLine struct {
	Number int
	Raw    []byte
}

// IngestResult tallies one batch replay.
type IngestResult struct {
	Locations int
	Issues    int
	Reviews   int
	Rejected  int
}

// Merge folds another batch tally into this one.
func (r *IngestResult) Merge(o IngestResult) {
	r.Locations += o.Locations
	r.Issues += o.Issues
	r.Reviews += o.Reviews
	r.Rejected += o.Rejected
}

// IngestLines maps one batch of feed lines and upserts it per kind.
// Malformed lines land in the reject table and are counted, never fatal;
// storage errors bubble up so the caller can stop the replay.
func (s *IngestionService) IngestLines(ctx context.Context, lines []FeedLine) (IngestResult, error) {
	var res IngestResult
	var locs []domain.Property
	var issues []domain.IssueRecord
	var facts []domain.ReviewFact

	for _, line := range lines {
		raw := bytes.TrimSpace(line.Raw)
		if len(raw) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(raw, &row); err != nil {
			s.reject(ctx, line.Number, "not valid JSON", &res)
			continue
		}
		switch kind := rowKind(row); kind {
		case "location":
			loc, err := mapLocationRow(row)
			if err != nil {
				s.reject(ctx, line.Number, err.Error(), &res)
				continue
			}
			locs = append(locs, loc)
			res.Locations++
		case "issue":
			rec, err := mapIssueRow(row)
			if err != nil {
				s.reject(ctx, line.Number, err.Error(), &res)
				continue
			}
			issues = append(issues, rec)
			res.Issues++
		case "review":
			rf, err := mapReviewRow(row)
			if err != nil {
				s.reject(ctx, line.Number, err.Error(), &res)
				continue
			}
			facts = append(facts, rf)
			res.Reviews++
		default:
			s.reject(ctx, line.Number, fmt.Sprintf("unknown row kind %q", kind), &res)
		}
	}

	// Locations land first so a board refresh between batches never sees
	// issue rows for a property missing from the directory.
	if len(locs) > 0 {
		if err := s.repo.UpsertLocations(ctx, locs); err != nil {
			return res, fmt.Errorf("upsert locations: %w", err)
		}
	}
	if len(issues) > 0 {
		if err := s.repo.UpsertIssues(ctx, issues); err != nil {
			return res, fmt.Errorf("upsert issues: %w", err)
		}
	}
	if len(facts) > 0 {
		if err := s.repo.UpsertReviewFacts(ctx, facts); err != nil {
			return res, fmt.Errorf("upsert review facts: %w", err)
		}
	}

	if s.cache != nil && res.Locations+res.Issues+res.Reviews > 0 {
		s.invalidateDashboards(ctx)
	}
	return res, nil
}

func (s *IngestionService) reject(ctx context.Context, line int, reason string, res *IngestResult) {
	res.Rejected++
	id := uuid.NewString()
	if err := s.repo.LogReject(ctx, id, line, reason); err != nil {
		log.Error().Err(err).Int("line", line).Str("reason", reason).Msg("reject log write failed")
		return
	}
	log.Warn().Str("reject_id", id).Int("line", line).Str("reason", reason).Msg("feed line rejected")
}

// invalidateDashboards clears the hot headquarters entries after a write.
// Per-property and manager-scoped keys are left to expire by TTL.
func (s *IngestionService) invalidateDashboards(ctx context.Context) {
	for _, op := range []string{"props", "flagged", "grouped", "regions", "healthy", "kpis", "trends"} {
		for _, win := range []string{"all", "7", "14", "30"} {
			_ = s.cache.Del(ctx, fmt.Sprintf("%s:hq:%s", op, win))
		}
	}
	_ = s.cache.Del(ctx, "regsum:hq")
}
