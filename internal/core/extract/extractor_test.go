package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/pawnlend/docverify/internal/core/domain"
)

type vendorFake struct {
	blocks []domain.Block
	err    error
	calls  int
}

func (f *vendorFake) ExtractBlocks(context.Context, []byte, string) ([]domain.Block, error) {
	f.calls++
	return f.blocks, f.err
}

type asyncVendorFake struct {
	blocks []domain.Block
	err    error
	calls  int
}

func (f *asyncVendorFake) ExtractBlocksAsync(context.Context, []byte, string) ([]domain.Block, error) {
	f.calls++
	return f.blocks, f.err
}

func sampleBlocks() []domain.Block {
	return []domain.Block{
		{ID: "l1", Type: domain.BlockLine, Text: "Certificate of Authenticity", Confidence: 0.98},
		{ID: "l2", Type: domain.BlockLine, Text: "Serial Number: ABC-123", Confidence: 0.96},
		{ID: "w1", Type: domain.BlockWord, Text: "Certificate", Confidence: 0.97},
		{ID: "w2", Type: domain.BlockWord, Text: "smudged", Confidence: 0.41},
		{ID: "k1", Type: domain.BlockKeyValue, EntityType: "KEY", Text: "Issued By", Confidence: 0.9, ChildIDs: []string{"v1"}},
		{ID: "v1", Type: domain.BlockKeyValue, EntityType: "VALUE", Text: " GIA ", Confidence: 0.92},
	}
}

func TestAnalyzeSyncSuccess(t *testing.T) {
	vendor := &vendorFake{blocks: sampleBlocks()}
	svc := NewService(vendor, nil, DefaultOptions())

	res, err := svc.Analyze(context.Background(), "doc-1", []byte("%PDF-1.4"), "application/pdf", domain.CategoryAuthenticity)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if vendor.calls != 1 {
		t.Fatalf("expected one vendor call, got %d", vendor.calls)
	}
	if res.Text != "Certificate of Authenticity\nSerial Number: ABC-123" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.Words) != 1 || res.Words[0].Text != "Certificate" {
		t.Fatalf("expected low-confidence word filtered, got %+v", res.Words)
	}
	if len(res.KeyValues) != 1 || res.KeyValues[0].Key != "Issued By" || res.KeyValues[0].Value != "GIA" {
		t.Fatalf("unexpected key values: %+v", res.KeyValues)
	}
	if res.Fields.SerialNumber != "ABC-123" {
		t.Fatalf("expected serial ABC-123, got %q", res.Fields.SerialNumber)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %v", res.Confidence)
	}
	if !res.Usable() {
		t.Fatalf("successful result must be usable")
	}
}

func TestAnalyzeUnsupportedFormat(t *testing.T) {
	vendor := &vendorFake{}
	svc := NewService(vendor, nil, DefaultOptions())

	res, err := svc.Analyze(context.Background(), "doc-1", []byte("hello"), "text/plain", domain.CategoryOther)
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if vendor.calls != 0 {
		t.Fatalf("vendor must not be called for unsupported formats")
	}
	if res == nil || res.ErrorMessage == "" {
		t.Fatalf("expected partial result with error message, got %+v", res)
	}
	if res.Usable() {
		t.Fatalf("failed result must not be usable")
	}
}

func TestAnalyzeVendorFailureKeepsPartialResult(t *testing.T) {
	vendor := &vendorFake{err: errors.New("vendor exploded")}
	svc := NewService(vendor, nil, DefaultOptions())

	res, err := svc.Analyze(context.Background(), "doc-1", []byte("%PDF-1.4"), "application/pdf", domain.CategoryOther)
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if res == nil || res.ErrorMessage == "" {
		t.Fatalf("expected error message recorded on result")
	}
	if res.DocumentID != "doc-1" || res.ID == "" {
		t.Fatalf("partial result must identify the attempt, got %+v", res)
	}
}

func TestAnalyzeTimeoutClassified(t *testing.T) {
	vendor := &vendorFake{err: context.DeadlineExceeded}
	svc := NewService(vendor, nil, DefaultOptions())

	_, err := svc.Analyze(context.Background(), "doc-1", []byte("%PDF-1.4"), "application/pdf", domain.CategoryOther)
	if !domain.IsKind(err, domain.ErrExtractionTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestAnalyzeLargePayloadUsesAsyncPath(t *testing.T) {
	vendor := &vendorFake{blocks: sampleBlocks()}
	async := &asyncVendorFake{blocks: sampleBlocks()}
	svc := NewService(vendor, async, Options{SyncMaxBytes: 8})

	large := append([]byte("%PDF-1.4"), make([]byte, 16)...)
	if _, err := svc.Analyze(context.Background(), "doc-1", large, "application/pdf", domain.CategoryOther); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if vendor.calls != 0 || async.calls != 1 {
		t.Fatalf("expected async path, got sync=%d async=%d", vendor.calls, async.calls)
	}
}

func TestAnalyzeLargePayloadWithoutAsyncPath(t *testing.T) {
	vendor := &vendorFake{}
	svc := NewService(vendor, nil, Options{SyncMaxBytes: 8})

	large := append([]byte("%PDF-1.4"), make([]byte, 16)...)
	_, err := svc.Analyze(context.Background(), "doc-1", large, "application/pdf", domain.CategoryOther)
	if !domain.IsKind(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("expected payload too large error, got %v", err)
	}
	if vendor.calls != 0 {
		t.Fatalf("sync vendor must not be called above the size limit")
	}
}

func TestNormalizeBlocksEmptyInput(t *testing.T) {
	out := normalizeBlocks(nil, 0.8)
	if out.confidence != 0 || out.text != "" {
		t.Fatalf("expected zero-valued output, got %+v", out)
	}
}

func TestNormalizeBlocksTableReconstruction(t *testing.T) {
	blocks := []domain.Block{
		{ID: "t1", Type: domain.BlockTable, Confidence: 0.9, ChildIDs: []string{"c1", "c2", "c3"}},
		{ID: "c1", Type: domain.BlockCell, Text: "Item", RowIndex: 1, ColIndex: 1, Confidence: 0.9},
		{ID: "c2", Type: domain.BlockCell, Text: "Value", RowIndex: 1, ColIndex: 2, Confidence: 0.9},
		{ID: "c3", Type: domain.BlockCell, Text: "Ring", RowIndex: 2, ColIndex: 1, Confidence: 0.9},
	}
	out := normalizeBlocks(blocks, 0.8)
	if len(out.tables) != 1 {
		t.Fatalf("expected one table, got %d", len(out.tables))
	}
	rows := out.tables[0].Rows
	if len(rows) != 2 || len(rows[0]) != 2 {
		t.Fatalf("unexpected table shape: %+v", rows)
	}
	if rows[0][0] != "Item" || rows[0][1] != "Value" || rows[1][0] != "Ring" || rows[1][1] != "" {
		t.Fatalf("unexpected table content: %+v", rows)
	}
}

func TestExtractFieldsByCategory(t *testing.T) {
	cases := []struct {
		name     string
		category domain.DocumentCategory
		text     string
		check    func(t *testing.T, f domain.StructuredFields)
	}{
		{
			name:     "authenticity",
			category: domain.CategoryAuthenticity,
			text:     "Certificate. Serial Number: XYZ-99. Issued by: GIA. Date 2026-03-01",
			check: func(t *testing.T, f domain.StructuredFields) {
				if f.SerialNumber != "XYZ-99" {
					t.Fatalf("serial = %q", f.SerialNumber)
				}
				if f.Issuer != "GIA" {
					t.Fatalf("issuer = %q", f.Issuer)
				}
				if f.DateIssued != "2026-03-01" {
					t.Fatalf("date = %q", f.DateIssued)
				}
			},
		},
		{
			name:     "nft",
			category: domain.CategoryNFT,
			text:     "NFT ownership proof. Token ID: 4521 on Ethereum mainnet",
			check: func(t *testing.T, f domain.StructuredFields) {
				if f.TokenID != "4521" {
					t.Fatalf("token id = %q", f.TokenID)
				}
				if f.Blockchain != "ethereum" {
					t.Fatalf("blockchain = %q", f.Blockchain)
				}
			},
		},
		{
			name:     "appraisal",
			category: domain.CategoryAppraisal,
			text:     "Appraised by: Jane Doe. Market Value: $12,500.00. Replacement Value: $15,000.00",
			check: func(t *testing.T, f domain.StructuredFields) {
				if f.AppraiserName != "Jane Doe" {
					t.Fatalf("appraiser = %q", f.AppraiserName)
				}
				if f.MarketValue != "12,500.00" {
					t.Fatalf("market value = %q", f.MarketValue)
				}
				if f.ReplacementValue != "15,000.00" {
					t.Fatalf("replacement value = %q", f.ReplacementValue)
				}
			},
		},
		{
			name:     "absent fields stay empty",
			category: domain.CategoryAuthenticity,
			text:     "nothing recognizable here",
			check: func(t *testing.T, f domain.StructuredFields) {
				if f != (domain.StructuredFields{}) {
					t.Fatalf("expected empty fields, got %+v", f)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, ExtractFields(tc.text, tc.category))
		})
	}
}
