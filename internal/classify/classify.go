// Package classify decides whether a listing is being sold because the owner
// is retiring or emigrating.
//
// Two rules run independently on every listing:
//
//   - Rule A looks at the explicit "reason for selling" field and matches the
//     stems "retir" and "emigrat".
//   - Rule B scans the free-text content blocks for "retirement" or
//     "retiring" and stops at the first block that mentions either.
//
// A listing satisfying both rules yields two records, Rule A's first.
package classify

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/log"
	"github.com/nao1215/bizscout/internal/model"
)

// Outcome is the result of one rule on one listing.
type Outcome string

const (
	// Matched means the rule produced a record.
	Matched Outcome = "matched"

	// NoMatch means the rule's input was present but mentioned no token.
	NoMatch Outcome = "no_match"

	// Absent means the rule's input was missing from the page.
	Absent Outcome = "absent"
)

// Result is the classification of one listing.
type Result struct {
	// Records holds zero, one or two records; Rule A's comes first.
	Records []model.MatchRecord

	ReasonOutcome  Outcome
	ContentOutcome Outcome

	// Evidence is the content excerpt that fired Rule B, if it did.
	Evidence string
}

// Classifier applies both rules.
type Classifier struct {
	reasonTokens  []string
	contentTokens []string
	limit         int
	prefix        string
	lower         cases.Caser
	logger        *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLexicon replaces the token lists, the evidence length and its prefix.
func WithLexicon(l config.Lexicon) Option {
	return func(c *Classifier) {
		c.reasonTokens = l.ReasonTokens
		c.contentTokens = l.ContentTokens
		if l.EvidenceLimit > 0 {
			c.limit = l.EvidenceLimit
		}
		c.prefix = l.ContentPrefix
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New returns a Classifier using the default lexicon.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		reasonTokens:  config.DefaultReasonTokens,
		contentTokens: config.DefaultContentTokens,
		limit:         config.DefaultEvidenceLimit,
		prefix:        config.DefaultContentPrefix,
		lower:         cases.Lower(language.Und),
		logger:        log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reasonTokens = c.lowerAll(c.reasonTokens)
	c.contentTokens = c.lowerAll(c.contentTokens)
	return c
}

func (c *Classifier) lowerAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, c.lower.String(t))
		}
	}
	return out
}

// Classify runs Rule A and Rule B on detail. url is the listing page the
// detail was read from; it is copied into every record.
func (c *Classifier) Classify(detail model.ListingDetail, url string) Result {
	res := Result{
		ReasonOutcome:  Absent,
		ContentOutcome: Absent,
	}

	if detail.Reason.Found {
		reason := c.lower.String(detail.Reason.Value)
		if containsAny(reason, c.reasonTokens) {
			res.ReasonOutcome = Matched
			res.Records = append(res.Records, model.MatchRecord{
				Title:   detail.Title,
				Address: detail.Address,
				URL:     url,
				Reason:  reason,
				Rule:    model.RuleReasonField,
			})
		} else {
			res.ReasonOutcome = NoMatch
		}
	} else {
		c.logger.Debug("no reason field to classify", "url", url)
	}

	if len(detail.Content) > 0 {
		res.ContentOutcome = NoMatch
		for _, block := range detail.Content {
			text := c.lower.String(block)
			if !containsAny(text, c.contentTokens) {
				continue
			}
			res.ContentOutcome = Matched
			res.Evidence = truncate(text, c.limit)
			res.Records = append(res.Records, model.MatchRecord{
				Title:   detail.Title,
				Address: detail.Address,
				URL:     url,
				Reason:  c.prefix + res.Evidence,
				Rule:    model.RuleContentScan,
			})
			break
		}
	} else {
		c.logger.Debug("no content blocks to classify", "url", url)
	}

	return res
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// truncate keeps the first n characters of s without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
