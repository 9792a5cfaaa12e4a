package mysql

const insertFailureSQL = `
INSERT INTO provider_failures (provider, kind, http_status, reason, seen_at)
VALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(3)))
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Newest first; the optional provider filter is bound twice so one statement
// serves both the filtered and unfiltered listing.
const listFailuresSQL = `
SELECT id, provider, kind, http_status, reason, seen_at
FROM provider_failures
WHERE (? IS NULL OR provider = ?)
ORDER BY seen_at DESC, id DESC
LIMIT ?
`
