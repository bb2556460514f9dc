package config

// Default filter values applied once before the crawl loop starts.
const (
	DefaultMinAskingPrice = 45000
	DefaultMinNetProfit   = 45000

	// DefaultEvidenceLimit is how many characters of a matching content block
	// are kept as evidence.
	DefaultEvidenceLimit = 200

	// DefaultContentPrefix prefixes the evidence of a content-scan match.
	DefaultContentPrefix = "retirement content: "
)

// DefaultExcludeKeywords are listing title fragments for business categories
// that are never worth visiting. Matching is case-insensitive substring.
var DefaultExcludeKeywords = []string{
	"jewellery", "holiday", "web", "pizza", "amazon", "cafe", "coffee",
	"restaurant", "franchise", "pub", "bar", "takeaway", "baker", "fish",
	"chippy", "clothing", "tea", "print", "bakery", "sandwich shop",
	"catering", "e-commerce", "online business", "food delivery",
	"food truck", "mobile catering", "drop shipping", "ecommerce",
	"online store", "cheese", "hospitality", "events", "care", "dating",
	"yoga", "kitchen",
}

// DefaultReasonTokens match the explicit "reason for selling" field.
// Stems are used so that "retir" covers retire, retiring and retirement.
var DefaultReasonTokens = []string{"retir", "emigrat"}

// DefaultContentTokens match free-text content blocks.
var DefaultContentTokens = []string{"retirement", "retiring"}

// Filters is the search filter form configuration.
type Filters struct {
	// Apply enables the filter step. When false the search page is crawled
	// as loaded.
	Apply bool `yaml:"apply"`

	// MinAskingPrice is typed into the minimum asking price field.
	MinAskingPrice int `yaml:"minAskingPrice"`

	// MinNetProfit is typed into the minimum net profit field.
	MinNetProfit int `yaml:"minNetProfit"`

	// PriceDisclosedOnly ticks the "disclosed only" box for the asking price.
	PriceDisclosedOnly bool `yaml:"priceDisclosedOnly"`

	// ProfitDisclosedOnly ticks the "disclosed only" box for the net profit.
	ProfitDisclosedOnly bool `yaml:"profitDisclosedOnly"`
}

// Lexicon holds the fixed word lists used for filtering and classification.
type Lexicon struct {
	// Exclude lists title fragments that skip a listing before it is visited.
	Exclude []string `yaml:"exclude"`

	// ReasonTokens are matched against the "reason for selling" field.
	ReasonTokens []string `yaml:"reasonTokens"`

	// ContentTokens are matched against free-text content blocks.
	ContentTokens []string `yaml:"contentTokens"`

	// EvidenceLimit is the number of characters kept from a matching content block.
	EvidenceLimit int `yaml:"evidenceLimit"`

	// ContentPrefix prefixes content-scan evidence.
	ContentPrefix string `yaml:"contentPrefix"`
}

// Selectors are the CSS selectors describing the directory's markup.
type Selectors struct {
	// ResultContainer must render before a result page is enumerated.
	ResultContainer string `yaml:"resultContainer"`

	// ListingLink selects the listing anchors on a result page.
	ListingLink string `yaml:"listingLink"`

	// NextLink selects the anchor pointing to the next result page.
	NextLink string `yaml:"nextLink"`

	// Title selects the listing heading on a detail page.
	Title string `yaml:"title"`

	// Address selects address fragments; the first one is used.
	Address string `yaml:"address"`

	// ReasonTerm selects the label elements of the detail definition list.
	ReasonTerm string `yaml:"reasonTerm"`

	// ReasonLabel is the label text identifying the reason field.
	ReasonLabel string `yaml:"reasonLabel"`

	// ReasonValue selects the sibling holding the reason text.
	ReasonValue string `yaml:"reasonValue"`

	// Content selects the free-text content blocks.
	Content string `yaml:"content"`

	// CookieAccept is the cookie consent button.
	CookieAccept string `yaml:"cookieAccept"`

	// PriceMin is the minimum asking price input.
	PriceMin string `yaml:"priceMin"`

	// ProfitMin is the minimum net profit input.
	ProfitMin string `yaml:"profitMin"`

	// PriceDisclosed is the "disclosed only" checkbox for the asking price.
	PriceDisclosed string `yaml:"priceDisclosed"`

	// ProfitDisclosed is the "disclosed only" checkbox for the net profit.
	ProfitDisclosed string `yaml:"profitDisclosed"`

	// UpdateResults triggers the filtered search.
	UpdateResults string `yaml:"updateResults"`
}

// File represents the structure of the .bizscout profile file.
type File struct {
	// Search is the search page used when no URL is given on the command line.
	Search string `yaml:"search,omitempty"`

	// MaxPages overrides the default page budget when the flag is not set.
	MaxPages int `yaml:"maxPages,omitempty"`

	// UserAgent overrides the default User-Agent when the flag is not set.
	UserAgent string `yaml:"userAgent,omitempty"`

	Filters   Filters   `yaml:"filters"`
	Lexicon   Lexicon   `yaml:"lexicon"`
	Selectors Selectors `yaml:"selectors"`
}

// DefaultFile returns the built-in profile for the business-for-sale directory.
func DefaultFile() *File {
	return &File{
		Search: DefaultSearchURL,
		Filters: Filters{
			Apply:               true,
			MinAskingPrice:      DefaultMinAskingPrice,
			MinNetProfit:        DefaultMinNetProfit,
			PriceDisclosedOnly:  true,
			ProfitDisclosedOnly: true,
		},
		Lexicon: Lexicon{
			Exclude:       append([]string(nil), DefaultExcludeKeywords...),
			ReasonTokens:  append([]string(nil), DefaultReasonTokens...),
			ContentTokens: append([]string(nil), DefaultContentTokens...),
			EvidenceLimit: DefaultEvidenceLimit,
			ContentPrefix: DefaultContentPrefix,
		},
		Selectors: DefaultSelectors(),
	}
}

// DefaultSelectors returns the selectors matching the directory's markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultContainer: "div.result",
		ListingLink:     "div.result table.result-table caption h2 a",
		NextLink:        "li.next-link a",
		Title:           "#title-address h1",
		Address:         "#address span",
		ReasonTerm:      "dt",
		ReasonLabel:     "Reasons for selling",
		ReasonValue:     "dd",
		Content:         "div.listing-section-content",
		CookieAccept:    "#onetrust-accept-btn-handler",
		PriceMin:        "#priceFrom",
		ProfitMin:       "#profitFrom",
		PriceDisclosed:  "#PriceDisclosedOnly",
		ProfitDisclosed: "#ProfitDisclosedOnly",
		UpdateResults:   "li.button.update-results-button",
	}
}

// Validate checks the lexicon and the selectors the crawl loop cannot run without.
func (f *File) Validate() error {
	if len(f.Lexicon.ReasonTokens) == 0 {
		return ErrEmptyReasonTokens
	}
	if len(f.Lexicon.ContentTokens) == 0 {
		return ErrEmptyContentTokens
	}
	if f.Lexicon.EvidenceLimit <= 0 {
		return ErrInvalidEvidenceLimit
	}
	s := f.Selectors
	if s.ResultContainer == "" || s.ListingLink == "" || s.NextLink == "" {
		return ErrMissingSelector
	}
	return nil
}
