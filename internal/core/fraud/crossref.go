package fraud

import (
	"fmt"
	"strings"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// runCrossReferenceChecks performs blacklist, issuer and template checks.
// Every fail becomes an issue: blacklist failures are critical, the rest
// high.
func (s *Scorer) runCrossReferenceChecks(res *domain.ExtractionResult, category domain.DocumentCategory) ([]domain.CrossReferenceCheck, []domain.FraudIssue) {
	var checks []domain.CrossReferenceCheck
	var issues []domain.FraudIssue

	serialCheck := s.checkSerialBlacklist(res.Fields.SerialNumber)
	checks = append(checks, serialCheck)
	if serialCheck.Result == domain.CheckFail {
		issues = append(issues, domain.FraudIssue{
			Category:    domain.IssueBlacklistedSerial,
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("serial number %q is blacklisted", res.Fields.SerialNumber),
			Evidence: domain.Evidence{
				Kind:      domain.EvidenceCrossRef,
				CheckName: serialCheck.Name,
				Value:     res.Fields.SerialNumber,
			},
			Confidence: serialCheck.Confidence,
		})
	}

	issuerCheck := s.checkIssuer(res.Fields.Issuer, category)
	checks = append(checks, issuerCheck)
	if issuerCheck.Result == domain.CheckFail {
		issues = append(issues, domain.FraudIssue{
			Category:    domain.IssueUnrecognizedIssuer,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("issuer %q is not a recognized %s issuer", res.Fields.Issuer, category),
			Evidence: domain.Evidence{
				Kind:      domain.EvidenceCrossRef,
				CheckName: issuerCheck.Name,
				Value:     res.Fields.Issuer,
			},
			Confidence: issuerCheck.Confidence,
		})
	}

	templateCheck := s.checkTemplateFields(res, category)
	checks = append(checks, templateCheck)
	if templateCheck.Result == domain.CheckFail {
		issues = append(issues, domain.FraudIssue{
			Category:    domain.IssueTemplateMismatch,
			Severity:    domain.SeverityHigh,
			Description: fmt.Sprintf("document carries too few required %s fields", category),
			Evidence: domain.Evidence{
				Kind:       domain.EvidenceCrossRef,
				CheckName:  templateCheck.Name,
				MatchRatio: templateCheck.Confidence,
			},
			Confidence: 0.7,
		})
	}

	return checks, issues
}

// checkSerialBlacklist is an exact, case-insensitive lookup with fixed
// confidence 0.95. Unknown when no serial was extracted.
func (s *Scorer) checkSerialBlacklist(serial string) domain.CrossReferenceCheck {
	check := domain.CrossReferenceCheck{Name: "serial_blacklist", Confidence: 0.95}
	if strings.TrimSpace(serial) == "" {
		check.Result = domain.CheckUnknown
		check.Detail = "no serial number extracted"
		check.Confidence = 0
		return check
	}
	if s.ref.isBlacklisted(serial) {
		check.Result = domain.CheckFail
		check.Detail = "serial number found on blacklist"
		return check
	}
	check.Result = domain.CheckPass
	check.Detail = "serial number not blacklisted"
	return check
}

// checkIssuer substring-matches the extracted issuer against the recognized
// issuer table for the category, confidence 0.8.
func (s *Scorer) checkIssuer(issuer string, category domain.DocumentCategory) domain.CrossReferenceCheck {
	check := domain.CrossReferenceCheck{Name: "issuer_verification", Confidence: 0.8}
	if strings.TrimSpace(issuer) == "" {
		check.Result = domain.CheckUnknown
		check.Detail = "no issuer extracted"
		check.Confidence = 0
		return check
	}
	known := s.ref.recognizedIssuers(category)
	if len(known) == 0 {
		check.Result = domain.CheckUnknown
		check.Detail = fmt.Sprintf("no recognized issuers maintained for %s", category)
		check.Confidence = 0
		return check
	}

	needle := strings.ToLower(issuer)
	for _, candidate := range known {
		c := strings.ToLower(candidate)
		if strings.Contains(needle, c) || strings.Contains(c, needle) {
			check.Result = domain.CheckPass
			check.Detail = fmt.Sprintf("matched recognized issuer %q", candidate)
			return check
		}
	}
	check.Result = domain.CheckFail
	check.Detail = "issuer not found in recognized issuer table"
	return check
}

// checkTemplateFields validates required-field presence; its confidence is
// the matched/required ratio and it fails below the layout threshold.
func (s *Scorer) checkTemplateFields(res *domain.ExtractionResult, category domain.DocumentCategory) domain.CrossReferenceCheck {
	check := domain.CrossReferenceCheck{Name: "template_validation"}
	tpl, ok := s.ref.template(category)
	if !ok || len(tpl.ExpectedFields) == 0 {
		check.Result = domain.CheckUnknown
		check.Detail = fmt.Sprintf("no template maintained for %s", category)
		return check
	}

	ratio := fieldMatchRatio(res, tpl.ExpectedFields)
	check.Confidence = ratio
	check.Detail = fmt.Sprintf("%.0f%% of template fields present", ratio*100)
	if ratio < layoutMatchThreshold {
		check.Result = domain.CheckFail
	} else {
		check.Result = domain.CheckPass
	}
	return check
}
