package domain

import "time"

// ReviewFact is one processed guest review from the review-fact table.
type ReviewFact struct {
	ReviewID     string
	PropertyName string
	Aspect       string
	Sentiment    string // negative | very_negative | neutral | positive
	StarRating   *float64
	ReviewDate   time.Time
	Channel      *string
	Text         *string
	Evidence     []string
	OpinionTerms []string
}

// Negative reports whether the fact lands in the negative bucket; anything
// not explicitly negative counts as positive for display purposes.
func (r ReviewFact) Negative() bool {
	return r.Sentiment == "negative" || r.Sentiment == "very_negative"
}

// DailyReviewCount is a day-grained portfolio aggregate used for the KPI
// reviews-processed figure and the trend series.
type DailyReviewCount struct {
	Day      time.Time
	Reviews  int
	Negative int
}
