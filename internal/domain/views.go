package domain

// Read models returned to the API layer. Plain primitives only; callers
// decide presentation formatting. Percentages are 0-100 floats.

// AspectStatus is the per-(property, aspect) unit the dashboard renders.
type AspectStatus struct {
	Name               string  `json:"name"`
	NegativePercentage float64 `json:"negative_percentage"`
	Status             string  `json:"status"`
}

// PropertyView is one directory entry with the window's classified aspects.
type PropertyView struct {
	Property   string         `json:"property"`
	PropertyID string         `json:"property_id"`
	City       string         `json:"city"`
	State      string         `json:"state"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Aspects    []AspectStatus `json:"aspects"`
	HasIssues  bool           `json:"has_issues"`
	TopTheme   string         `json:"top_theme"`
}

// FlaggedAspect is one flagged (property, aspect) row, flattened.
type FlaggedAspect struct {
	Property           string  `json:"property"`
	PropertyID         string  `json:"property_id"`
	Aspect             string  `json:"aspect"`
	NegativePercentage float64 `json:"negative_percentage"`
	Status             string  `json:"status"`
}

// FlaggedGroup bundles one property's flagged aspects under a single
// severity: critical if any aspect is critical, else warning.
type FlaggedGroup struct {
	Property   string         `json:"property"`
	PropertyID string         `json:"property_id"`
	City       string         `json:"city"`
	State      string         `json:"state"`
	Aspects    []AspectStatus `json:"aspects"`
	Severity   string         `json:"severity"`
}

// RegionBucket holds one region's flagged properties split by severity.
type RegionBucket struct {
	Region   string         `json:"region"`
	Critical []FlaggedGroup `json:"critical"`
	Warning  []FlaggedGroup `json:"warning"`
}

// PropertyCard is the slim entry used by the healthy/no-data lists.
type PropertyCard struct {
	Name       string `json:"name"`
	PropertyID string `json:"property_id"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// HealthSplit partitions the non-flagged directory: properties with issue
// data but nothing flagged vs properties with no data in the window at all.
type HealthSplit struct {
	Healthy   []PropertyCard `json:"healthy"`
	NoReviews []PropertyCard `json:"no_reviews"`
}

// KPITrends compares the requested window against the preceding window of
// equal length. Share/satisfaction deltas are percentage points.
type KPITrends struct {
	NegativeReviewsChange   float64 `json:"negative_reviews_change"`
	FlaggedPropertiesChange int     `json:"flagged_properties_change"`
	SatisfactionChange      float64 `json:"satisfaction_change"`
}

// KPISummary is the dashboard headline rollup.
type KPISummary struct {
	TotalProperties     int       `json:"total_properties"`
	PropertiesFlagged   int       `json:"properties_flagged"`
	AvgNegativeShare    float64   `json:"avg_negative_share"`
	OverallSatisfaction float64   `json:"overall_satisfaction"`
	ReviewsProcessed    int       `json:"reviews_processed"`
	AspectsWithIssues   int       `json:"aspects_with_issues"`
	TotalAspects        int       `json:"total_aspects"`
	Trends              KPITrends `json:"trends"`
}

// DeepDive is the aspect detail view for one (property, aspect) pair.
type DeepDive struct {
	Aspect             string `json:"aspect"`
	Severity           string `json:"severity"`
	DateOpened         string `json:"date_opened"`
	OpenReason         string `json:"open_reason"`
	VolumePercentage   int    `json:"volume_percentage"`
	TotalReviews       int    `json:"total_reviews"`
	NegativeCount      int    `json:"negative_count"`
	PositiveCount      int    `json:"positive_count"`
	IssueSummary       string `json:"issue_summary"`
	PotentialRootCause string `json:"potential_root_cause"`
	Impact             string `json:"impact"`
	RecommendedAction  string `json:"recommended_action"`
}

// GuestReview is one individual review fact prepared for display.
type GuestReview struct {
	ReviewID     string   `json:"review_id"`
	Sentiment    string   `json:"sentiment"`
	StarRating   *float64 `json:"star_rating"`
	ReviewDate   string   `json:"review_date"`
	Channel      string   `json:"channel"`
	Text         string   `json:"review_text"`
	Evidence     []string `json:"evidence"`
	OpinionTerms []string `json:"opinion_terms"`
}

// ReviewBuckets splits one pair's reviews by polarity.
type ReviewBuckets struct {
	Negative []GuestReview `json:"negative"`
	Positive []GuestReview `json:"positive"`
}

// TrendPoint is one day in the portfolio negative-share series.
type TrendPoint struct {
	Day           string  `json:"day"`
	Reviews       int     `json:"reviews"`
	NegativeCount int     `json:"negative_count"`
	NegativeShare float64 `json:"negative_share"`
	Satisfaction  float64 `json:"satisfaction"`
}

// RegionPerformance is the unwindowed per-region rollup for comparisons.
type RegionPerformance struct {
	Region        string  `json:"region"`
	Total         int     `json:"total"`
	Flagged       int     `json:"flagged"`
	NegativeShare float64 `json:"negative_share"`
	Satisfaction  float64 `json:"satisfaction"`
}

// EmailDraft is templated corrective or praise mail content; delivery is
// someone else's job.
type EmailDraft struct {
	PropertyID   string `json:"property_id"`
	Property     string `json:"property"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	Severity     string `json:"severity"`
	PrimaryIssue string `json:"primary_issue,omitempty"`
}

// Recommendation is one runbook entry prepared for a flagged aspect.
type Recommendation struct {
	Aspect         string   `json:"aspect"`
	Priority       string   `json:"priority"`
	SeverityScore  float64  `json:"severity_score"`
	Action         string   `json:"action"`
	ActionItems    []string `json:"action_items"`
	ExpectedImpact string   `json:"expected_impact"`
	Timeline       string   `json:"timeline"`
	CostEstimate   string   `json:"cost_estimate"`
	Difficulty     string   `json:"difficulty"`
}

// RecommendationSummary rolls a property's recommendation list up for the
// header card.
type RecommendationSummary struct {
	TotalRecommendations int      `json:"total_recommendations"`
	CriticalCount        int      `json:"critical_count"`
	WarningCount         int      `json:"warning_count"`
	EstimatedTimeline    string   `json:"estimated_timeline"`
	OverallPriority      string   `json:"overall_priority"`
	TopAspects           []string `json:"top_aspects,omitempty"`
}

// RecommendationSet is the full per-property recommendations response.
type RecommendationSet struct {
	Property        string                `json:"property"`
	PropertyID      string                `json:"property_id"`
	Recommendations []Recommendation      `json:"recommendations"`
	Summary         RecommendationSummary `json:"summary"`
}

// AssistantAnswer is whatever the NL-to-SQL collaborator returned, passed
// through to the caller untouched.
type AssistantAnswer struct {
	ConversationID string     `json:"conversation_id"`
	MessageID      string     `json:"message_id"`
	Text           string     `json:"text,omitempty"`
	SQL            string     `json:"sql,omitempty"`
	Columns        []string   `json:"columns,omitempty"`
	Rows           [][]string `json:"rows,omitempty"`
}
