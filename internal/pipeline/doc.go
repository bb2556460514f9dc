// Package pipeline runs the one-time setup of a search session.
//
// Before the crawl loop starts, the search page needs a few interactions: the
// cookie banner is dismissed and the filter form is filled in and submitted.
// Each interaction is a Step; a Pipeline runs its steps in order against the
// browser session and reports which ones worked.
//
// Setup is best effort. A missing cookie banner or a filter form that moved
// must not stop the crawl, so the crawler runs the pipeline with
// continue-on-error and only logs failures.
package pipeline
