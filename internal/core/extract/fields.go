package extract

import (
	"regexp"
	"strings"

	"github.com/pawnlend/docverify/internal/core/domain"
)

// Field recognizers are tried in order; the first match wins and absence is
// not an error.
var (
	serialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)serial(?:\s*(?:number|no\.?|#))?[:\s]*([A-Z0-9][A-Z0-9-]{2,})`),
		regexp.MustCompile(`(?i)\bs/n[:\s]*([A-Z0-9][A-Z0-9-]{2,})`),
		regexp.MustCompile(`(?i)certificate\s*(?:number|no\.?|#)[:\s]*([A-Z0-9][A-Z0-9-]{2,})`),
	}

	issuerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)issued\s+by[:\s]*([A-Za-z0-9][A-Za-z0-9 &'-]*)`),
		regexp.MustCompile(`(?i)issuer[:\s]*([A-Za-z0-9][A-Za-z0-9 &'-]*)`),
		regexp.MustCompile(`(?i)certified\s+by[:\s]*([A-Za-z0-9][A-Za-z0-9 &'-]*)`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\b`),
		regexp.MustCompile(`(?i)\b((?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4})\b`),
	}

	tokenIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)token\s*(?:id)?[:\s#]*(\d+)`),
		regexp.MustCompile(`(?i)\bnft\s*(?:id|#)[:\s]*(\d+)`),
	}

	blockchainPattern = regexp.MustCompile(`(?i)\b(ethereum|polygon|solana|bitcoin|binance|arbitrum|base|tezos)\b`)

	appraiserPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)appraised\s+by[:\s]*([A-Za-z][A-Za-z '-]*)`),
		regexp.MustCompile(`(?i)appraiser[:\s]*([A-Za-z][A-Za-z '-]*)`),
	}

	marketValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:fair\s+)?market\s+value[:\s]*\$?\s*([\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)estimated\s+value[:\s]*\$?\s*([\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)appraised\s+value[:\s]*\$?\s*([\d,]+(?:\.\d{2})?)`),
	}

	replacementValuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)replacement\s+(?:value|cost)[:\s]*\$?\s*([\d,]+(?:\.\d{2})?)`),
	}
)

func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(strings.TrimRight(m[1], " .,"))
		}
	}
	return ""
}

// ExtractFields runs the category-specific recognizers over concatenated OCR
// text.
func ExtractFields(text string, category domain.DocumentCategory) domain.StructuredFields {
	var f domain.StructuredFields
	if text == "" {
		return f
	}

	f.DateIssued = firstMatch(text, datePatterns)

	switch category {
	case domain.CategoryAuthenticity:
		f.SerialNumber = firstMatch(text, serialPatterns)
		f.Issuer = firstMatch(text, issuerPatterns)
	case domain.CategoryNFT:
		f.TokenID = firstMatch(text, tokenIDPatterns)
		f.Issuer = firstMatch(text, issuerPatterns)
		if m := blockchainPattern.FindStringSubmatch(text); len(m) > 1 {
			f.Blockchain = strings.ToLower(m[1])
		}
	case domain.CategoryAppraisal:
		f.AppraiserName = firstMatch(text, appraiserPatterns)
		f.MarketValue = firstMatch(text, marketValuePatterns)
		f.ReplacementValue = firstMatch(text, replacementValuePatterns)
	case domain.CategoryInsurance:
		f.SerialNumber = firstMatch(text, serialPatterns)
		f.Issuer = firstMatch(text, issuerPatterns)
		f.ReplacementValue = firstMatch(text, replacementValuePatterns)
	default:
		f.SerialNumber = firstMatch(text, serialPatterns)
		f.Issuer = firstMatch(text, issuerPatterns)
	}

	return f
}
