package app

import "lakehouse_voc/internal/domain"

// minWindowVolume is the sample-size gate for the windowed policy: below
// this many reviews a pair is never flagged, however extreme the ratio.
const minWindowVolume = 7

// Threshold ladders. Equal-to-threshold values round toward the more
// severe bucket.
const (
	ratioCritical = 0.40
	ratioWarning  = 0.20
	ratioGood     = 0.10

	windowCriticalShare = 0.80
	windowWarningShare  = 0.60
	windowCriticalDelta = 15.0 // percentage points vs baseline
	windowWarningDelta  = 10.0
)

// Classify maps a negative-share fraction to a severity. When a baseline
// share is supplied the windowed policy applies: recent share and the
// percentage-point delta against the baseline decide flag membership, and
// the volume gate suppresses classification on thin samples. Without a
// baseline the plain ratio ladder applies. Zero volume is always
// insufficient data.
func Classify(negativeShare float64, volume int, baselineShare *float64) domain.Severity {
	if volume <= 0 {
		return domain.SeverityInsufficient
	}
	if baselineShare != nil {
		if volume < minWindowVolume {
			return domain.SeverityInsufficient
		}
		deltaPP := (negativeShare - *baselineShare) * 100
		switch {
		case negativeShare >= windowCriticalShare || deltaPP >= windowCriticalDelta:
			return domain.SeverityCritical
		case negativeShare >= windowWarningShare || deltaPP >= windowWarningDelta:
			return domain.SeverityWarning
		case negativeShare >= ratioGood:
			return domain.SeverityGood
		default:
			return domain.SeverityExcellent
		}
	}
	switch {
	case negativeShare >= ratioCritical:
		return domain.SeverityCritical
	case negativeShare >= ratioWarning:
		return domain.SeverityWarning
	case negativeShare >= ratioGood:
		return domain.SeverityGood
	default:
		return domain.SeverityExcellent
	}
}

// ClassifyRecord grades one issue row. The upstream label wins when it
// parses; otherwise the numeric policies take over. Zero-volume rows are
// never trusted, label or not.
func ClassifyRecord(rec domain.IssueRecord) domain.Severity {
	if rec.Volume <= 0 {
		return domain.SeverityInsufficient
	}
	if rec.Label != nil {
		if s, ok := domain.ParseSeverity(*rec.Label); ok {
			return s
		}
	}
	return Classify(rec.NegativeShare, rec.Volume, rec.BaselineShare)
}
