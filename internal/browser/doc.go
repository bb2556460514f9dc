// Package browser defines the page-session capability the crawler drives and
// the two engines that provide it.
//
// A Browser holds exactly one page at a time. The crawler navigates it,
// waits for selectors, snapshots the DOM into a goquery document and performs
// the few interactions the search form needs (typing a value, ticking a box,
// clicking a button).
//
// Engines:
//   - Chrome drives a headless Chrome through the DevTools protocol
//     (chromedp). It runs the directory's scripts, so result pages rendered
//     client-side and the cookie banner behave as they do for a visitor.
//   - HTTP fetches static HTML with net/http. It has no script runtime;
//     clicks follow links or submit the enclosing form with the values set
//     through SetValue. It is used against static mirrors and in tests.
//
// Errors are classified so the navigator can decide whether to retry:
// ErrInvalidURL is permanent, everything else a navigation returns is
// treated as transient.
package browser
