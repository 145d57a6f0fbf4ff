package warehouse

// Supported database/sql driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// slugExpr turns a stored property name into the dashboard's property id so
// manager scopes can filter rows without a separate id column.
const slugExpr = `REPLACE(REPLACE(LOWER(name), ',', ''), ' ', '-')`

const issueSlugExpr = `REPLACE(REPLACE(LOWER(property_name), ',', ''), ' ', '-')`

// -----------------------------------------------------------------------------
// WRITE QUERIES (ingest side; per-dialect upsert suffixes)
// -----------------------------------------------------------------------------

const upsertLocationsPrefix = `INSERT INTO locations (name, city, state, lat, lon) VALUES `

const locationPlaceholders = "(?,?,?,?,?)"

const upsertLocationsMySQL = ` ON DUPLICATE KEY UPDATE
  city  = VALUES(city),
  state = VALUES(state),
  lat   = COALESCE(VALUES(lat), locations.lat),
  lon   = COALESCE(VALUES(lon), locations.lon)`

const upsertLocationsPostgres = ` ON CONFLICT (name) DO UPDATE SET
  city  = EXCLUDED.city,
  state = EXCLUDED.state,
  lat   = COALESCE(EXCLUDED.lat, locations.lat),
  lon   = COALESCE(EXCLUDED.lon, locations.lon)`

const upsertIssuesPrefix = `INSERT INTO aspect_issues
  (property_name, aspect, label, negative_share, volume, baseline_share, opened_at, open_reason, narrative)
VALUES `

const issuePlaceholders = "(?,?,?,?,?,?,?,?,?)"

const upsertIssuesMySQL = ` ON DUPLICATE KEY UPDATE
  label          = VALUES(label),
  negative_share = VALUES(negative_share),
  volume         = VALUES(volume),
  baseline_share = VALUES(baseline_share),
  open_reason    = VALUES(open_reason),
  narrative      = COALESCE(VALUES(narrative), aspect_issues.narrative)`

const upsertIssuesPostgres = ` ON CONFLICT (property_name, aspect, opened_at) DO UPDATE SET
  label          = EXCLUDED.label,
  negative_share = EXCLUDED.negative_share,
  volume         = EXCLUDED.volume,
  baseline_share = EXCLUDED.baseline_share,
  open_reason    = EXCLUDED.open_reason,
  narrative      = COALESCE(EXCLUDED.narrative, aspect_issues.narrative)`

const upsertFactsPrefix = `INSERT INTO review_facts
  (review_id, property_name, aspect, sentiment, star_rating, review_date, channel, review_text, evidence, opinion_terms)
VALUES `

const factPlaceholders = "(?,?,?,?,?,?,?,?,?,?)"

// COALESCE keeps the old value when a replayed fact arrives thinner.
const upsertFactsMySQL = ` ON DUPLICATE KEY UPDATE
  sentiment     = VALUES(sentiment),
  star_rating   = COALESCE(VALUES(star_rating), review_facts.star_rating),
  channel       = COALESCE(VALUES(channel), review_facts.channel),
  review_text   = COALESCE(VALUES(review_text), review_facts.review_text),
  evidence      = COALESCE(VALUES(evidence), review_facts.evidence),
  opinion_terms = COALESCE(VALUES(opinion_terms), review_facts.opinion_terms)`

const upsertFactsPostgres = ` ON CONFLICT (review_id) DO UPDATE SET
  sentiment     = EXCLUDED.sentiment,
  star_rating   = COALESCE(EXCLUDED.star_rating, review_facts.star_rating),
  channel       = COALESCE(EXCLUDED.channel, review_facts.channel),
  review_text   = COALESCE(EXCLUDED.review_text, review_facts.review_text),
  evidence      = COALESCE(EXCLUDED.evidence, review_facts.evidence),
  opinion_terms = COALESCE(EXCLUDED.opinion_terms, review_facts.opinion_terms)`

const insertRejectSQL = `INSERT INTO feed_rejects (id, line_no, reason) VALUES (?,?,?)`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listLocationsSQL = `
SELECT name, city, state, lat, lon
FROM locations
ORDER BY name`

const listLocationsScopedSQL = `
SELECT name, city, state, lat, lon
FROM locations
WHERE ` + slugExpr + ` = ?
ORDER BY name`

const listIssuesSQL = `
SELECT property_name, aspect, label, negative_share, volume, baseline_share, opened_at, open_reason, narrative
FROM aspect_issues
ORDER BY property_name, aspect, opened_at`

const listIssuesScopedSQL = `
SELECT property_name, aspect, label, negative_share, volume, baseline_share, opened_at, open_reason, narrative
FROM aspect_issues
WHERE ` + issueSlugExpr + ` = ?
ORDER BY property_name, aspect, opened_at`

const listFactsSQL = `
SELECT review_id, property_name, aspect, sentiment, star_rating, review_date, channel, review_text, evidence, opinion_terms
FROM review_facts
WHERE property_name = ? AND aspect = ?
ORDER BY review_date DESC, review_id`

const listDailyCountsSQL = `
SELECT review_date,
       COUNT(*) AS reviews,
       COALESCE(SUM(CASE WHEN sentiment IN ('negative','very_negative') THEN 1 ELSE 0 END), 0) AS negative
FROM review_facts
GROUP BY review_date
ORDER BY review_date`

const listDailyCountsScopedSQL = `
SELECT review_date,
       COUNT(*) AS reviews,
       COALESCE(SUM(CASE WHEN sentiment IN ('negative','very_negative') THEN 1 ELSE 0 END), 0) AS negative
FROM review_facts
WHERE ` + issueSlugExpr + ` = ?
GROUP BY review_date
ORDER BY review_date`
