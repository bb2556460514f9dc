// Package model defines the data structures shared by the crawl engine.
//
// This package contains the following main types:
//   - ListingRef: A listing link captured from a result page
//   - ListingDetail: The transient, page-scoped view of one listing
//   - MatchRecord: A retained listing together with the evidence that matched
//   - CrawlState: Pagination position owned by the crawl controller
//   - CrawlResult: Everything a finished crawl hands to the report writers
//
// Models live in their own package so that the enumerator, extractor,
// classifier, crawler, report and database packages can share them without
// import cycles.
package model
