package model

// ListingRef is a candidate listing captured from a result page.
// It is produced by the enumerator and consumed exactly once by the
// detail-visit step. A ListingRef is never modified after creation.
type ListingRef struct {
	// Title is the link text shown on the result page.
	Title string `json:"title"`

	// URL is the absolute URL of the listing detail page.
	URL string `json:"url"`
}

// Text is the outcome of extracting one optional text field.
// Found reports whether the element was located; Value is empty when it was not.
type Text struct {
	Value string
	Found bool
}

// Present returns a Text holding a located value.
func Present(value string) Text {
	return Text{Value: value, Found: true}
}

// Absent returns a Text for a field that could not be located.
func Absent() Text {
	return Text{}
}

// ValueOr returns the field value, or fallback when the field is absent or blank.
func (t Text) ValueOr(fallback string) string {
	if !t.Found || t.Value == "" {
		return fallback
	}
	return t.Value
}

// ListingDetail is the page-scoped view of a loaded listing.
// It is never persisted; only MatchRecords derived from it survive.
type ListingDetail struct {
	// Title is the heading of the listing page, or the enumerated title
	// when the heading could not be read.
	Title string

	// Address is the first address fragment on the page, or "" when absent.
	Address string

	// Reason is the structured "reason for selling" field, when present.
	Reason Text

	// Content holds the free-text content blocks in document order.
	Content []string
}

// Rule identifies which classification rule produced a MatchRecord.
type Rule string

const (
	// RuleReasonField matches the explicit "reason for selling" field.
	RuleReasonField Rule = "reason_field"

	// RuleContentScan matches free-text content blocks.
	RuleContentScan Rule = "content_scan"
)

// MatchRecord is a listing retained by the classifier.
// Records are append-only: the result set grows in visit order and
// is never deduplicated, so one listing may appear once per rule.
type MatchRecord struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	URL     string `json:"url"`
	Reason  string `json:"reason"`

	// Rule is the rule that produced the record. It is stored in the run
	// history but is not part of the tabular artifact.
	Rule Rule `json:"rule"`
}

// Columns returns the tabular artifact header.
func Columns() []string {
	return []string{"title", "address", "url", "reason"}
}

// Row returns the record as a row matching Columns.
func (m MatchRecord) Row() []string {
	return []string{m.Title, m.Address, m.URL, m.Reason}
}
