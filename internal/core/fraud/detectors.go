package fraud

import (
	"fmt"
	"strings"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// lowConfidenceThreshold marks extraction output too weak to trust.
const lowConfidenceThreshold = 0.5

// detectTextPatterns scans OCR text against the configurable pattern table
// and flags weak extraction output and duplicated form keys.
func (s *Scorer) detectTextPatterns(res *domain.ExtractionResult) []domain.FraudIssue {
	var issues []domain.FraudIssue
	for _, p := range s.ref.textPatternTable() {
		m := p.re.FindString(res.Text)
		if m == "" {
			continue
		}
		issues = append(issues, domain.FraudIssue{
			Category:    domain.IssueSuspiciousKeyword,
			Severity:    p.Severity,
			Description: fmt.Sprintf("suspicious keyword %q found in document text", m),
			Evidence: domain.Evidence{
				Kind:    domain.EvidencePattern,
				Pattern: p.Pattern,
				Matched: m,
			},
			Confidence: p.Confidence,
		})
	}

	if res.Confidence < lowConfidenceThreshold {
		issues = append(issues, domain.FraudIssue{
			Category:    domain.IssueTextInconsistency,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("overall extraction confidence %.2f is below %.2f", res.Confidence, lowConfidenceThreshold),
			Evidence: domain.Evidence{
				Kind:  domain.EvidenceText,
				Value: fmt.Sprintf("%.3f", res.Confidence),
			},
			Confidence: 0.7,
		})
	}

	if dup := duplicateKeys(res.KeyValues); len(dup) > 0 {
		issues = append(issues, domain.FraudIssue{
			Category:    domain.IssueTextInconsistency,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("duplicate form field keys: %s", strings.Join(dup, ", ")),
			Evidence: domain.Evidence{
				Kind:          domain.EvidenceText,
				MissingFields: dup,
			},
			Confidence: 0.6,
		})
	}

	return issues
}

func duplicateKeys(pairs []domain.KeyValuePair) []string {
	seen := make(map[string]int)
	var dup []string
	for _, p := range pairs {
		key := strings.ToLower(strings.TrimSpace(p.Key))
		seen[key]++
		if seen[key] == 2 {
			dup = append(dup, key)
		}
	}
	return dup
}

// detectMissingElements checks category-specific required semantic elements.
// Missing two or more is high severity, missing one is medium.
func (s *Scorer) detectMissingElements(res *domain.ExtractionResult, category domain.DocumentCategory) []domain.FraudIssue {
	tpl, ok := s.ref.template(category)
	if !ok || len(tpl.RequiredElements) == 0 {
		return nil
	}

	text := strings.ToLower(res.Text)
	var missing []string
	for _, el := range tpl.RequiredElements {
		if !strings.Contains(text, strings.ToLower(el)) {
			missing = append(missing, el)
		}
	}

	if tpl.AnyOf {
		if len(missing) < len(tpl.RequiredElements) {
			return nil
		}
		return []domain.FraudIssue{{
			Category:    domain.IssueMissingElements,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("document mentions none of the expected %s terms", category),
			Evidence: domain.Evidence{
				Kind:          domain.EvidenceTemplate,
				MissingFields: missing,
			},
			Confidence: 0.8,
		}}
	}

	switch {
	case len(missing) >= 2:
		return []domain.FraudIssue{{
			Category:    domain.IssueMissingElements,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("document is missing %d required elements: %s", len(missing), strings.Join(missing, ", ")),
			Evidence: domain.Evidence{
				Kind:          domain.EvidenceTemplate,
				MissingFields: missing,
			},
			Confidence: 0.8,
		}}
	case len(missing) == 1:
		return []domain.FraudIssue{{
			Category:    domain.IssueMissingElements,
			Severity:    domain.SeverityMedium,
			Description: fmt.Sprintf("document is missing required element: %s", missing[0]),
			Evidence: domain.Evidence{
				Kind:          domain.EvidenceTemplate,
				MissingFields: missing,
			},
			Confidence: 0.7,
		}}
	}
	return nil
}

// matchKnownPatterns checks OCR text against the maintained known-fraud
// table. Matches become PatternMatch records; matches at or above 0.7
// additionally become critical issues.
func (s *Scorer) matchKnownPatterns(res *domain.ExtractionResult) ([]domain.PatternMatch, []domain.FraudIssue) {
	var matches []domain.PatternMatch
	var issues []domain.FraudIssue

	for _, p := range s.ref.knownPatternTable() {
		m := p.re.FindString(res.Text)
		if m == "" {
			continue
		}
		matches = append(matches, domain.PatternMatch{
			Pattern:         p.Pattern,
			Matched:         m,
			MatchConfidence: p.Confidence,
		})
		if p.Confidence >= 0.7 {
			issues = append(issues, domain.FraudIssue{
				Category:    domain.IssueKnownFraudPattern,
				Severity:    domain.SeverityCritical,
				Description: fmt.Sprintf("text matches known fraud pattern %q", p.Pattern),
				Evidence: domain.Evidence{
					Kind:    domain.EvidencePattern,
					Pattern: p.Pattern,
					Matched: m,
				},
				Confidence: p.Confidence,
			})
		}
	}
	return matches, issues
}

// layoutMatchThreshold is the minimum expected-field match ratio before a
// layout anomaly is raised.
const layoutMatchThreshold = 0.6

// matchTemplateLayout compares extracted form keys against the category
// template's expected-field list.
func (s *Scorer) matchTemplateLayout(res *domain.ExtractionResult, category domain.DocumentCategory) ([]domain.PatternMatch, []domain.FraudIssue) {
	tpl, ok := s.ref.template(category)
	if !ok || len(tpl.ExpectedFields) == 0 {
		return nil, nil
	}

	ratio := fieldMatchRatio(res, tpl.ExpectedFields)
	if ratio >= layoutMatchThreshold {
		return nil, nil
	}

	match := domain.PatternMatch{
		Pattern:         fmt.Sprintf("template:%s", category),
		Matched:         fmt.Sprintf("field match ratio %.2f", ratio),
		MatchConfidence: 1 - ratio,
	}
	issue := domain.FraudIssue{
		Category:    domain.IssueLayoutAnomaly,
		Severity:    domain.SeverityMedium,
		Description: fmt.Sprintf("extracted fields match only %.0f%% of the %s template", ratio*100, category),
		Evidence: domain.Evidence{
			Kind:       domain.EvidenceTemplate,
			MatchRatio: ratio,
		},
		Confidence: 1 - ratio,
	}
	return []domain.PatternMatch{match}, []domain.FraudIssue{issue}
}

// fieldMatchRatio counts expected field names found among extracted form
// keys or anywhere in the OCR text.
func fieldMatchRatio(res *domain.ExtractionResult, expected []string) float64 {
	if len(expected) == 0 {
		return 1
	}
	keys := make([]string, 0, len(res.KeyValues))
	for _, kv := range res.KeyValues {
		keys = append(keys, strings.ToLower(kv.Key))
	}
	text := strings.ToLower(res.Text)

	matched := 0
	for _, want := range expected {
		w := strings.ToLower(want)
		found := strings.Contains(text, w)
		for _, k := range keys {
			if strings.Contains(k, w) || strings.Contains(w, k) {
				found = true
				break
			}
		}
		if found {
			matched++
		}
	}
	return float64(matched) / float64(len(expected))
}
