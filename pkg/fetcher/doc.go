// Package fetcher retrieves the complete saved listing of a Reddit account.
//
// An Iterator walks the listing one request at a time. The first request
// carries no cursor; each later request forwards the previous page's after
// value verbatim. The page whose after is null is kept and ends the run.
// FetchAllPages folds an Iterator into a ResultSet.
//
// A run fails as a whole: a transport or decode error, a cancelled context,
// or hitting MaxPages/MaxItems returns an error and no pages. Per-page retry
// is available through Config.Retry and is off by default. Pages are not
// deduplicated; see ResultSet.UniqueItems.
package fetcher
