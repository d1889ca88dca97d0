package fraud

import (
	"fmt"
	"strings"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// reviewNotes renders the deterministic human-auditable summary attached to
// every assessment.
func reviewNotes(score float64, tier domain.RiskTier, issues []domain.FraudIssue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fraud score: %.3f (risk tier: %s).\n", score, tier)

	if len(issues) == 0 {
		b.WriteString("No issues detected.\n")
	} else {
		fmt.Fprintf(&b, "%d issue(s) detected.\n", len(issues))
	}

	var critical []domain.FraudIssue
	for _, issue := range issues {
		if issue.Severity == domain.SeverityCritical {
			critical = append(critical, issue)
		}
	}
	if len(critical) > 0 {
		b.WriteString("Critical issues:\n")
		for i, issue := range critical {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", issue.Description)
		}
	}

	switch {
	case score >= 0.7:
		b.WriteString("Recommendation: manual review required.")
	case score >= 0.5:
		b.WriteString("Recommendation: additional verification recommended.")
	default:
		b.WriteString("Recommendation: document appears legitimate.")
	}
	return b.String()
}
