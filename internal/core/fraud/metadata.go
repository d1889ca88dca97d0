package fraud

import (
	"bytes"
	"strings"

	"github.com/pawnlend/docverify/internal/core/domain"
)

var pdfEditorSignatures = []string{
	"iText", "PDFescape", "Sejda", "Foxit", "ilovepdf", "PDFsam", "pdftk",
}

var imageEditorSignatures = []string{
	"Photoshop", "GIMP", "Paint", "Pixelmator", "Affinity Photo", "Canva",
}

// highRiskTools flag deliberate image manipulation rather than routine
// document tooling.
var highRiskTools = map[string]struct{}{
	"Photoshop": {},
	"GIMP":      {},
	"Paint":     {},
}

// analyzeMetadata inspects raw bytes for structural red flags. A PDF whose
// magic number is wrong is fully inconsistent; editor signatures reduce the
// consistency score multiplicatively.
func analyzeMetadata(data []byte, mimeType string) domain.MetadataAnalysis {
	meta := domain.MetadataAnalysis{ConsistencyScore: 1.0}

	if mimeType == "application/pdf" && !bytes.HasPrefix(data, []byte("%PDF-")) {
		meta.ConsistencyScore = 0
	}

	pdfEdited := findSignatures(data, pdfEditorSignatures)
	imageEdited := findSignatures(data, imageEditorSignatures)

	if len(pdfEdited) > 0 {
		meta.HasBeenEdited = true
		meta.EditingTools = append(meta.EditingTools, pdfEdited...)
		meta.ConsistencyScore *= 0.7
	}
	if len(imageEdited) > 0 {
		meta.HasBeenEdited = true
		meta.EditingTools = append(meta.EditingTools, imageEdited...)
		meta.ConsistencyScore *= 0.8
	}

	meta.SuspiciousMetadata = meta.ConsistencyScore < 0.6 || editedByHighRiskTool(meta.EditingTools)
	return meta
}

func findSignatures(data []byte, signatures []string) []string {
	var found []string
	lower := bytes.ToLower(data)
	for _, sig := range signatures {
		if bytes.Contains(lower, []byte(strings.ToLower(sig))) {
			found = append(found, sig)
		}
	}
	return found
}

func editedByHighRiskTool(tools []string) bool {
	for _, t := range tools {
		if _, ok := highRiskTools[t]; ok {
			return true
		}
	}
	return false
}

// metadataIssue converts a suspicious metadata analysis into its issue.
func metadataIssue(meta domain.MetadataAnalysis) domain.FraudIssue {
	tools := strings.Join(meta.EditingTools, ", ")
	if tools == "" {
		tools = "structural inconsistency"
	}
	return domain.FraudIssue{
		Category:    domain.IssueMetadataTampering,
		Severity:    domain.SeverityHigh,
		Description: "document metadata indicates possible tampering: " + tools,
		Evidence: domain.Evidence{
			Kind:       domain.EvidenceMetadata,
			Tool:       tools,
			MatchRatio: meta.ConsistencyScore,
		},
		Confidence: 0.8,
	}
}
