package app

import (
	"context"
	"fmt"
	"strings"

	"lakehouse_voc/internal/domain"
	"lakehouse_voc/internal/refdata"
)

// DraftEmail builds the outgoing mail for a property: a corrective-action
// draft around its primary issue when anything is flagged (critical
// outranks warning), otherwise a praise update. Delivery is out of scope.
// Unknown properties return nil with no error.
func (s *DiagnosticsService) DraftEmail(ctx context.Context, scope domain.Scope, propertyID string, w domain.Window) (*domain.EmailDraft, error) {
	key := fmt.Sprintf("email:%s:%s:%s", scope.Key(), propertyID, w.Key())
	var cached domain.EmailDraft
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return &cached, nil
	}
	snap := s.fetchSnapshot(ctx, scope)
	loc, ok := findLocation(snap.locations, propertyID)
	if !ok {
		return nil, nil
	}
	recs := worstPerAspect(issuesInWindow(snap.issues, w))[loc.Name]

	var primary *domain.IssueRecord
	primarySev := domain.SeverityInsufficient
	for i := range recs {
		sev := ClassifyRecord(recs[i])
		if !sev.Flagged() {
			continue
		}
		// records run worst share first, so the first hit per severity wins
		if primary == nil || sev > primarySev {
			primary, primarySev = &recs[i], sev
		}
	}

	var draft domain.EmailDraft
	if primary != nil {
		draft = issueEmail(loc.Name, propertyID, *primary, primarySev)
	} else {
		draft = praiseEmail(loc.Name, propertyID, recs)
	}
	s.cacheSet(ctx, key, draft)
	return &draft, nil
}

func issueEmail(property, propertyID string, rec domain.IssueRecord, sev domain.Severity) domain.EmailDraft {
	severity, urgency := "attention", "Attention Required"
	issuePhrase, attention := "an issue", "prompt"
	trendPhrase, increase := "increased to", "an increase"
	if sev == domain.SeverityCritical {
		severity, urgency = "critical", "Urgent Action Required"
		issuePhrase, attention = "a critical issue", "immediate"
		trendPhrase, increase = "declined to", "a significant increase"
	}

	var actions strings.Builder
	for i, item := range refdata.Runbook(rec.Aspect).EmailActionItems {
		fmt.Fprintf(&actions, "%d. %s\n", i+1, item)
	}

	body := fmt.Sprintf(`Dear Property Manager,

Our Voice of Customer analytics have identified %s requiring %s attention at the %s location.

ISSUE SUMMARY:
- %s satisfaction has %s %.1f%% negative reviews (7-day average)
- This represents %s from our target threshold of <2%%
- Guest feedback indicates concerns requiring immediate attention

RECOMMENDED ACTIONS:
%s
EXPECTED TIMELINE:
- Immediate: Begin corrective protocols
- Within 48 hours: Complete initial improvements
- Within 1 week: Full implementation and monitoring

Please confirm receipt and provide an action plan by end of business today.

Best regards,
Lakehouse Inn Voice of Customer Analytics Team`,
		issuePhrase, attention, property,
		rec.Aspect, trendPhrase, rec.NegativeShare*100, increase,
		actions.String())

	return domain.EmailDraft{
		PropertyID:   propertyID,
		Property:     property,
		Subject:      fmt.Sprintf("%s - %s Issues at %s Property", urgency, rec.Aspect, property),
		Body:         body,
		Severity:     severity,
		PrimaryIssue: rec.Aspect,
	}
}

func praiseEmail(property, propertyID string, recs []domain.IssueRecord) domain.EmailDraft {
	var summary strings.Builder
	total := 0
	for _, r := range recs {
		fmt.Fprintf(&summary, "- %s: %.1f%% negative reviews (%s)\n",
			r.Aspect, r.NegativeShare*100, titleCase(ClassifyRecord(r).String()))
		total += r.Volume
	}
	if summary.Len() == 0 {
		summary.WriteString("- No open issues on record for this property\n")
	}

	body := fmt.Sprintf(`Dear Property Manager,

Great news! Our Voice of Customer analytics show that %s is performing excellently across all monitored aspects.

PERFORMANCE SUMMARY:
%s
GUEST SATISFACTION METRICS:
- Total Reviews Analyzed: %d
- Overall Performance: Outstanding

Keep up the excellent work! Your team's dedication to guest satisfaction is clearly reflected in these outstanding results.

Best regards,
Lakehouse Inn Voice of Customer Analytics Team`,
		property, summary.String(), total)

	return domain.EmailDraft{
		PropertyID: propertyID,
		Property:   property,
		Subject:    "Property Performance Update - " + property,
		Body:       body,
		Severity:   "positive",
	}
}

func findLocation(locations []domain.Property, propertyID string) (domain.Property, bool) {
	for _, l := range locations {
		if domain.PropertyID(l.Name) == propertyID {
			return l, true
		}
	}
	return domain.Property{}, false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
