// Package extract implements the ordered strategy chain that turns fetched
// HTML into recipe candidates: structured data, microdata, generic selector
// patterns, site-specific scrapers, and a heuristic fallback. It also hosts
// the content classifier, the field normalizer, and the validity gate that
// decides when a candidate is good enough to persist.
package extract
