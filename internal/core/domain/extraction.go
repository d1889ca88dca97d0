package domain

import "time"

// BlockType mirrors the block taxonomy of the external OCR capability.
type BlockType string

const (
	BlockLine     BlockType = "LINE"
	BlockWord     BlockType = "WORD"
	BlockTable    BlockType = "TABLE"
	BlockCell     BlockType = "CELL"
	BlockKeyValue BlockType = "KEY_VALUE_SET"
)

// BoundingBox is normalized page geometry in [0,1].
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block is one unit of OCR vendor output. Relationships reference other
// block IDs: CHILD links cells to tables and values to keys.
type Block struct {
	ID         string      `json:"id"`
	Type       BlockType   `json:"type"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Geometry   BoundingBox `json:"geometry"`
	RowIndex   int         `json:"row_index,omitempty"`
	ColIndex   int         `json:"col_index,omitempty"`
	EntityType string      `json:"entity_type,omitempty"` // KEY or VALUE for KEY_VALUE_SET
	ChildIDs   []string    `json:"child_ids,omitempty"`
}

type WordBox struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Geometry   BoundingBox `json:"geometry"`
}

// Table is a reconstructed 2-D text grid; gaps are empty strings.
type Table struct {
	Rows       [][]string  `json:"rows"`
	Confidence float64     `json:"confidence"`
	Geometry   BoundingBox `json:"geometry"`
}

type KeyValuePair struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// StructuredFields are the category-specific fields recognized by regex over
// the OCR text. Absent fields stay empty; absence is not an error.
type StructuredFields struct {
	SerialNumber     string `json:"serial_number,omitempty"`
	Issuer           string `json:"issuer,omitempty"`
	DateIssued       string `json:"date_issued,omitempty"`
	TokenID          string `json:"token_id,omitempty"`
	Blockchain       string `json:"blockchain,omitempty"`
	AppraiserName    string `json:"appraiser_name,omitempty"`
	MarketValue      string `json:"market_value,omitempty"`
	ReplacementValue string `json:"replacement_value,omitempty"`
}

// ExtractionResult is one OCR outcome for a document. It is immutable once
// written and superseded wholesale on re-analysis.
type ExtractionResult struct {
	ID           string           `json:"id"`
	DocumentID   string           `json:"document_id"`
	Text         string           `json:"text"`
	KeyValues    []KeyValuePair   `json:"key_values"`
	Tables       []Table          `json:"tables"`
	Words        []WordBox        `json:"words"`
	Fields       StructuredFields `json:"fields"`
	Confidence   float64          `json:"confidence"`
	Duration     time.Duration    `json:"duration"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Usable reports whether the result carries structured output the scorer may
// consume. A result with an error message has none.
func (r *ExtractionResult) Usable() bool {
	return r != nil && r.ErrorMessage == ""
}
