package reference

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/fraud"
)

// Load reads fraud reference tables from a YAML file. An empty path returns
// the compiled-in defaults, so deployments only ship a file when they need
// to override them.
func Load(path string) (fraud.Tables, error) {
	if path == "" {
		return fraud.DefaultTables(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fraud.Tables{}, fmt.Errorf("read reference file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (fraud.Tables, error) {
	var file tablesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fraud.Tables{}, fmt.Errorf("parse reference yaml: %w", err)
	}
	return file.toTables()
}

type tablesFile struct {
	TextPatterns []struct {
		Pattern    string  `yaml:"pattern"`
		Severity   string  `yaml:"severity"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"text_patterns"`
	KnownFraudPatterns []struct {
		Pattern    string  `yaml:"pattern"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"known_fraud_patterns"`
	Templates map[string]struct {
		RequiredElements []string `yaml:"required_elements"`
		AnyOf            bool     `yaml:"any_of"`
		ExpectedFields   []string `yaml:"expected_fields"`
	} `yaml:"templates"`
	RecognizedIssuers  map[string][]string `yaml:"recognized_issuers"`
	BlacklistedSerials []string            `yaml:"blacklisted_serials"`
}

func (f tablesFile) toTables() (fraud.Tables, error) {
	out := fraud.Tables{
		Templates:          make(map[domain.DocumentCategory]fraud.CategoryTemplate),
		RecognizedIssuers:  make(map[domain.DocumentCategory][]string),
		BlacklistedSerials: f.BlacklistedSerials,
	}

	for _, p := range f.TextPatterns {
		severity := domain.Severity(p.Severity)
		if !validSeverity(severity) {
			return fraud.Tables{}, fmt.Errorf("text pattern %q: unknown severity %q", p.Pattern, p.Severity)
		}
		if p.Confidence <= 0 || p.Confidence > 1 {
			return fraud.Tables{}, fmt.Errorf("text pattern %q: confidence out of range: %v", p.Pattern, p.Confidence)
		}
		out.TextPatterns = append(out.TextPatterns, fraud.TextPattern{
			Pattern:    p.Pattern,
			Severity:   severity,
			Confidence: p.Confidence,
		})
	}

	for _, p := range f.KnownFraudPatterns {
		if p.Confidence <= 0 || p.Confidence > 1 {
			return fraud.Tables{}, fmt.Errorf("known fraud pattern %q: confidence out of range: %v", p.Pattern, p.Confidence)
		}
		out.KnownFraudPatterns = append(out.KnownFraudPatterns, fraud.KnownPattern{
			Pattern:    p.Pattern,
			Confidence: p.Confidence,
		})
	}

	for cat, tpl := range f.Templates {
		category := domain.DocumentCategory(cat)
		if !domain.ValidCategory(category) {
			return fraud.Tables{}, fmt.Errorf("template for unknown category %q", cat)
		}
		out.Templates[category] = fraud.CategoryTemplate{
			RequiredElements: tpl.RequiredElements,
			AnyOf:            tpl.AnyOf,
			ExpectedFields:   tpl.ExpectedFields,
		}
	}

	for cat, issuers := range f.RecognizedIssuers {
		category := domain.DocumentCategory(cat)
		if !domain.ValidCategory(category) {
			return fraud.Tables{}, fmt.Errorf("issuers for unknown category %q", cat)
		}
		out.RecognizedIssuers[category] = issuers
	}

	return out, nil
}

func validSeverity(s domain.Severity) bool {
	switch s {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
		return true
	default:
		return false
	}
}
