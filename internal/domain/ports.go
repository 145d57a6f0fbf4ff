package domain

import (
	"context"
	"errors"
)

// ErrNotFound signals an unknown property or aspect on lookup paths.
var ErrNotFound = errors.New("not found")

// Role selects which warehouse credentials and row visibility a request
// runs under.
type Role string

const (
	RoleHeadquarters    Role = "headquarters"
	RolePropertyManager Role = "property_manager"
)

// Scope is the auth context forwarded with every data-source call. The
// engine passes it through unchanged; resolving it to credentials and row
// filters happens at the storage boundary. The zero value behaves as an
// unrestricted headquarters scope.
type Scope struct {
	Role       Role
	PropertyID string // set for property-manager sessions
}

// Key is the cache-key fragment for the scope.
func (s Scope) Key() string {
	if s.Role == RolePropertyManager && s.PropertyID != "" {
		return "pm:" + s.PropertyID
	}
	return "hq"
}

// WarehouseRepository reads the analytics tables (and takes ingest writes
// from the feed replayer; the dashboard itself never mutates).
type WarehouseRepository interface {
	// Ingest paths.
	UpsertLocations(ctx context.Context, ls []Property) error
	UpsertIssues(ctx context.Context, is []IssueRecord) error
	UpsertReviewFacts(ctx context.Context, rs []ReviewFact) error
	LogReject(ctx context.Context, id string, line int, reason string) error

	// Dashboard read paths.
	ListLocations(ctx context.Context, scope Scope) ([]Property, error)
	ListIssues(ctx context.Context, scope Scope) ([]IssueRecord, error)
	ListReviewFacts(ctx context.Context, scope Scope, propertyName, aspect string) ([]ReviewFact, error)
	ListReviewDailyCounts(ctx context.Context, scope Scope) ([]DailyReviewCount, error)
}

// Assistant is the conversational NL-to-SQL collaborator. Opaque: answers
// pass through to the caller untouched.
type Assistant interface {
	Start(ctx context.Context, scope Scope, question string) (AssistantAnswer, error)
	Continue(ctx context.Context, scope Scope, conversationID, question string) (AssistantAnswer, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
