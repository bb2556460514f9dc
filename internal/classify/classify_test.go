package classify

import (
	"strings"
	"testing"

	"github.com/nao1215/bizscout/internal/config"
	"github.com/nao1215/bizscout/internal/model"
)

const listingURL = "https://example.com/uk/listing-1"

func detail(reason model.Text, content ...string) model.ListingDetail {
	return model.ListingDetail{
		Title:   "Plumbing Business",
		Address: "Leeds",
		Reason:  reason,
		Content: content,
	}
}

func TestClassify_RuleIndependence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		detail      model.ListingDetail
		wantRules   []model.Rule
		wantReason  Outcome
		wantContent Outcome
	}{
		{
			name:        "reason field only",
			detail:      detail(model.Present("Retiring after 20 years"), "Great location near the ring road."),
			wantRules:   []model.Rule{model.RuleReasonField},
			wantReason:  Matched,
			wantContent: NoMatch,
		},
		{
			name:        "content only",
			detail:      detail(model.Absent(), "The owner is planning retirement."),
			wantRules:   []model.Rule{model.RuleContentScan},
			wantReason:  Absent,
			wantContent: Matched,
		},
		{
			name:        "both rules fire",
			detail:      detail(model.Present("Emigrating to Spain"), "Sale due to retirement."),
			wantRules:   []model.Rule{model.RuleReasonField, model.RuleContentScan},
			wantReason:  Matched,
			wantContent: Matched,
		},
		{
			name:        "neither rule fires",
			detail:      detail(model.Present("Relocation"), "Turnover is growing."),
			wantRules:   nil,
			wantReason:  NoMatch,
			wantContent: NoMatch,
		},
		{
			name:        "nothing to classify",
			detail:      detail(model.Absent()),
			wantRules:   nil,
			wantReason:  Absent,
			wantContent: Absent,
		},
		{
			name:        "content rule ignores the reason stem",
			detail:      detail(model.Absent(), "The owner has retired."),
			wantRules:   nil,
			wantReason:  Absent,
			wantContent: NoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := New().Classify(tt.detail, listingURL)

			if len(res.Records) != len(tt.wantRules) {
				t.Fatalf("expected %d records, got %+v", len(tt.wantRules), res.Records)
			}
			for i, r := range res.Records {
				if r.Rule != tt.wantRules[i] {
					t.Errorf("record %d: expected rule %s, got %s", i, tt.wantRules[i], r.Rule)
				}
				if r.URL != listingURL || r.Title != "Plumbing Business" || r.Address != "Leeds" {
					t.Errorf("record %d carries wrong listing fields: %+v", i, r)
				}
			}
			if res.ReasonOutcome != tt.wantReason {
				t.Errorf("reason outcome: expected %s, got %s", tt.wantReason, res.ReasonOutcome)
			}
			if res.ContentOutcome != tt.wantContent {
				t.Errorf("content outcome: expected %s, got %s", tt.wantContent, res.ContentOutcome)
			}
		})
	}
}

func TestClassify_ReasonIsLowerCased(t *testing.T) {
	t.Parallel()

	res := New().Classify(detail(model.Present("Owner RETIRING after 20 Years")), listingURL)
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	if res.Records[0].Reason != "owner retiring after 20 years" {
		t.Errorf("unexpected reason %q", res.Records[0].Reason)
	}
}

func TestClassify_StemMatching(t *testing.T) {
	t.Parallel()

	for _, reason := range []string{"retire", "Retirement", "RETIRING", "emigrate", "Emigrating abroad"} {
		res := New().Classify(detail(model.Present(reason)), listingURL)
		if res.ReasonOutcome != Matched {
			t.Errorf("%q: expected a match", reason)
		}
	}
}

func TestClassify_ContentShortCircuit(t *testing.T) {
	t.Parallel()

	res := New().Classify(detail(model.Absent(),
		"First block: owner RETIRING soon.",
		"Second block has nothing.",
		"Third block: also retiring.",
	), listingURL)

	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	want := "retirement content: first block: owner retiring soon."
	if res.Records[0].Reason != want {
		t.Errorf("expected %q, got %q", want, res.Records[0].Reason)
	}
	if res.Evidence != "first block: owner retiring soon." {
		t.Errorf("unexpected evidence %q", res.Evidence)
	}
}

func TestClassify_EvidenceIsTruncated(t *testing.T) {
	t.Parallel()

	long := "retirement " + strings.Repeat("é", 300)
	res := New().Classify(detail(model.Absent(), long), listingURL)
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}

	evidence := strings.TrimPrefix(res.Records[0].Reason, config.DefaultContentPrefix)
	if n := len([]rune(evidence)); n != config.DefaultEvidenceLimit {
		t.Errorf("expected %d characters of evidence, got %d", config.DefaultEvidenceLimit, n)
	}
	if !strings.HasPrefix(evidence, "retirement ") {
		t.Errorf("evidence must start at the fragment start: %q", evidence)
	}
}

func TestClassify_CustomLexicon(t *testing.T) {
	t.Parallel()

	lex := config.Lexicon{
		ReasonTokens:  []string{"Health"},
		ContentTokens: []string{"succession"},
		EvidenceLimit: 10,
		ContentPrefix: "content: ",
	}
	c := New(WithLexicon(lex))

	res := c.Classify(detail(model.Present("Ill health"), "Succession planning in place"), listingURL)
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %+v", res.Records)
	}
	if res.Records[1].Reason != "content: succession" {
		t.Errorf("unexpected content evidence %q", res.Records[1].Reason)
	}

	res = c.Classify(detail(model.Present("retiring")), listingURL)
	if len(res.Records) != 0 {
		t.Errorf("default tokens must be replaced, got %+v", res.Records)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("short string changed: %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := truncate("ééé", 2); got != "éé" {
		t.Errorf("expected two runes, got %q", got)
	}
}
