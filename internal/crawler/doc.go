// Package crawler walks the paginated search results and classifies every
// listing they link to.
//
// # Crawl loop
//
// A Crawler owns one browser session through its navigator and runs a small
// state machine:
//
//	Init       load the search page, run the setup pipeline
//	PerPage    wait for the result container (timeout ends the crawl)
//	Enumerate  list the listings, remember the page URL and the next link
//	PerListing load, extract, classify, append, load the page URL again
//	Paginate   load the next link, or stop
//
// Listings are visited strictly one after another in page order. Returning to
// the result page always uses its absolute URL, so a failed return never
// shifts the crawl onto the wrong page: the next listing is loaded by its own
// absolute URL as well.
//
// # Failure containment
//
// A listing that cannot be loaded is skipped. A result page that never
// renders its listings ends the crawl. Running out of pages, a missing next
// link and a next page that cannot be loaded all end the crawl normally. In
// every case Run returns the matches gathered so far together with the
// reason the crawl stopped.
//
// # Batches
//
// BatchProcessor runs several searches at once, each with its own session,
// and returns their results in argument order.
package crawler
