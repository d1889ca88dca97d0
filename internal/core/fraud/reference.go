package fraud

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// TextPattern is one entry of the text-pattern detector table: data, not
// code, so deployments extend it without a rebuild.
type TextPattern struct {
	Pattern    string
	Severity   domain.Severity
	Confidence float64

	re *regexp.Regexp
}

// KnownPattern is one maintained known-fraud regex with a fixed confidence.
type KnownPattern struct {
	Pattern    string
	Confidence float64

	re *regexp.Regexp
}

// CategoryTemplate describes what a legitimate document of a category looks
// like: semantic elements that must appear in text and the field keys its
// layout is expected to carry.
type CategoryTemplate struct {
	RequiredElements []string
	// AnyOf relaxes RequiredElements to "at least one present", used for
	// categories whose vocabulary varies (NFT chains).
	AnyOf          bool
	ExpectedFields []string
}

// Tables is the serializable form of all reference data.
type Tables struct {
	TextPatterns       []TextPattern
	KnownFraudPatterns []KnownPattern
	Templates          map[domain.DocumentCategory]CategoryTemplate
	RecognizedIssuers  map[domain.DocumentCategory][]string
	BlacklistedSerials []string
}

// Reference holds compiled reference data behind a lock so admin operations
// can mutate it while workers score.
type Reference struct {
	mu            sync.RWMutex
	textPatterns  []TextPattern
	knownPatterns []KnownPattern
	templates     map[domain.DocumentCategory]CategoryTemplate
	issuers       map[domain.DocumentCategory][]string
	blacklist     map[string]struct{}
}

// NewReference compiles the given tables. Invalid regexes are rejected
// up front rather than at scoring time.
func NewReference(t Tables) (*Reference, error) {
	ref := &Reference{
		templates: make(map[domain.DocumentCategory]CategoryTemplate),
		issuers:   make(map[domain.DocumentCategory][]string),
		blacklist: make(map[string]struct{}),
	}

	for _, p := range t.TextPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile text pattern %q: %w", p.Pattern, err)
		}
		p.re = re
		ref.textPatterns = append(ref.textPatterns, p)
	}
	for _, p := range t.KnownFraudPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile known fraud pattern %q: %w", p.Pattern, err)
		}
		p.re = re
		ref.knownPatterns = append(ref.knownPatterns, p)
	}
	for cat, tpl := range t.Templates {
		ref.templates[cat] = tpl
	}
	for cat, list := range t.RecognizedIssuers {
		ref.issuers[cat] = append([]string(nil), list...)
	}
	for _, s := range t.BlacklistedSerials {
		ref.blacklist[normalizeSerial(s)] = struct{}{}
	}
	return ref, nil
}

// DefaultTables are the compiled-in reference tables, used when no external
// reference file is configured.
func DefaultTables() Tables {
	return Tables{
		TextPatterns: []TextPattern{
			{Pattern: `fake|fraud|counterfeit|replica`, Severity: domain.SeverityCritical, Confidence: 0.8},
			{Pattern: `copy|duplicate|sample`, Severity: domain.SeverityMedium, Confidence: 0.7},
			{Pattern: `temporary|draft|not valid`, Severity: domain.SeverityHigh, Confidence: 0.8},
		},
		KnownFraudPatterns: []KnownPattern{
			{Pattern: `fake.*certificate`, Confidence: 0.9},
			{Pattern: `counterfeit.*authentic`, Confidence: 0.95},
			{Pattern: `not\s+an?\s+official\s+document`, Confidence: 0.85},
			{Pattern: `specimen|void\s+if\s+copied`, Confidence: 0.75},
		},
		Templates: map[domain.DocumentCategory]CategoryTemplate{
			domain.CategoryAuthenticity: {
				RequiredElements: []string{"certificate", "authentic", "issued", "date"},
				ExpectedFields:   []string{"certificate number", "serial number", "issued by", "date", "item description"},
			},
			domain.CategoryAppraisal: {
				RequiredElements: []string{"appraisal", "value", "appraiser", "date"},
				ExpectedFields:   []string{"appraiser", "market value", "replacement value", "date", "item description"},
			},
			domain.CategoryNFT: {
				RequiredElements: []string{"blockchain", "token", "nft", "ethereum", "polygon", "solana"},
				AnyOf:            true,
				ExpectedFields:   []string{"token id", "contract address", "blockchain", "owner"},
			},
			domain.CategoryInsurance: {
				RequiredElements: []string{"insurance", "policy", "coverage", "date"},
				ExpectedFields:   []string{"policy number", "insurer", "coverage amount", "effective date"},
			},
		},
		RecognizedIssuers: map[domain.DocumentCategory][]string{
			domain.CategoryAuthenticity: {"gemological institute of america", "gia", "psa", "beckett", "cgc", "universal grading"},
			domain.CategoryAppraisal:    {"american society of appraisers", "appraisers association of america", "isa"},
			domain.CategoryInsurance:    {"lloyd's", "chubb", "axa", "allianz"},
		},
	}
}

func normalizeSerial(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// AddFraudPattern appends a known-fraud regex at runtime.
func (r *Reference) AddFraudPattern(pattern string, confidence float64) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("compile fraud pattern %q: %w", pattern, err)
	}
	if confidence <= 0 || confidence > 1 {
		return fmt.Errorf("fraud pattern confidence out of range: %v", confidence)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knownPatterns = append(r.knownPatterns, KnownPattern{Pattern: pattern, Confidence: confidence, re: re})
	return nil
}

func (r *Reference) AddBlacklistedSerial(serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blacklist[normalizeSerial(serial)] = struct{}{}
}

func (r *Reference) RemoveBlacklistedSerial(serial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blacklist, normalizeSerial(serial))
}

func (r *Reference) isBlacklisted(serial string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blacklist[normalizeSerial(serial)]
	return ok
}

func (r *Reference) textPatternTable() []TextPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textPatterns
}

func (r *Reference) knownPatternTable() []KnownPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knownPatterns
}

func (r *Reference) template(cat domain.DocumentCategory) (CategoryTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[cat]
	return tpl, ok
}

func (r *Reference) recognizedIssuers(cat domain.DocumentCategory) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.issuers[cat]
}
