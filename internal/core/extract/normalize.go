package extract

import (
	"strings"

	"github.com/pawnlend/docverify/internal/core/domain"
)

type normalized struct {
	text       string
	words      []domain.WordBox
	tables     []domain.Table
	keyValues  []domain.KeyValuePair
	confidence float64
}

// normalizeBlocks post-processes vendor blocks into the result shape:
// concatenated line text, filtered word boxes, reconstructed tables and
// paired key/value forms. Overall confidence is the arithmetic mean of all
// block confidences, zero when there are no blocks.
func normalizeBlocks(blocks []domain.Block, wordThreshold float64) normalized {
	var out normalized
	if len(blocks) == 0 {
		return out
	}

	byID := make(map[string]domain.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	var lines []string
	var confSum float64
	for _, b := range blocks {
		confSum += b.Confidence

		switch b.Type {
		case domain.BlockLine:
			if b.Text != "" {
				lines = append(lines, b.Text)
			}
		case domain.BlockWord:
			if b.Confidence >= wordThreshold {
				out.words = append(out.words, domain.WordBox{
					Text:       b.Text,
					Confidence: b.Confidence,
					Geometry:   b.Geometry,
				})
			}
		case domain.BlockTable:
			out.tables = append(out.tables, buildTable(b, byID))
		case domain.BlockKeyValue:
			if b.EntityType == "KEY" {
				if pair, ok := buildKeyValue(b, byID); ok {
					out.keyValues = append(out.keyValues, pair)
				}
			}
		}
	}

	out.text = strings.Join(lines, "\n")
	out.confidence = confSum / float64(len(blocks))
	return out
}

// buildTable groups child cells by their row/column indexes and fills gaps
// with empty strings.
func buildTable(table domain.Block, byID map[string]domain.Block) domain.Table {
	maxRow, maxCol := 0, 0
	cells := make([]domain.Block, 0, len(table.ChildIDs))
	for _, id := range table.ChildIDs {
		cell, ok := byID[id]
		if !ok || cell.Type != domain.BlockCell {
			continue
		}
		cells = append(cells, cell)
		if cell.RowIndex > maxRow {
			maxRow = cell.RowIndex
		}
		if cell.ColIndex > maxCol {
			maxCol = cell.ColIndex
		}
	}

	rows := make([][]string, maxRow)
	for i := range rows {
		rows[i] = make([]string, maxCol)
	}
	for _, cell := range cells {
		if cell.RowIndex < 1 || cell.ColIndex < 1 {
			continue
		}
		rows[cell.RowIndex-1][cell.ColIndex-1] = strings.TrimSpace(cell.Text)
	}

	return domain.Table{
		Rows:       rows,
		Confidence: table.Confidence,
		Geometry:   table.Geometry,
	}
}

// buildKeyValue pairs a KEY block to its VALUE block via explicit
// relationship links.
func buildKeyValue(key domain.Block, byID map[string]domain.Block) (domain.KeyValuePair, bool) {
	for _, id := range key.ChildIDs {
		value, ok := byID[id]
		if !ok || value.Type != domain.BlockKeyValue || value.EntityType != "VALUE" {
			continue
		}
		k := strings.TrimSpace(key.Text)
		if k == "" {
			return domain.KeyValuePair{}, false
		}
		conf := (key.Confidence + value.Confidence) / 2
		return domain.KeyValuePair{
			Key:        k,
			Value:      strings.TrimSpace(value.Text),
			Confidence: conf,
		}, true
	}
	return domain.KeyValuePair{}, false
}
