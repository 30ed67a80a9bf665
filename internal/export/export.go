// Package export converts flattened price records to and from bulk file formats.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"price-catalog/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"

	sheetName = "Prices"
)

var header = []string{"id", "product_id", "store_id", "amount", "recorded_at"}

// Codec encodes and decodes price records in one file format
type Codec interface {
	Encode(records []domain.PriceRecord) ([]byte, error)
	// Decode fails with a domain.ErrSerialization error on malformed input.
	Decode(payload []byte) ([]domain.PriceRecord, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the codec for a format name, defaulting to JSON
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return NewJSONCodec(), nil
	case FormatXLSX:
		return NewXLSXCodec(), nil
	default:
		return nil, domain.NewValidationError("format", fmt.Sprintf("unsupported format %q", format))
	}
}

type jsonCodec struct{}

// NewJSONCodec creates a codec for JSON arrays of price records
func NewJSONCodec() Codec {
	return jsonCodec{}
}

func (jsonCodec) Encode(records []domain.PriceRecord) ([]byte, error) {
	if records == nil {
		records = []domain.PriceRecord{}
	}
	return json.Marshal(records)
}

func (jsonCodec) Decode(payload []byte) ([]domain.PriceRecord, error) {
	var records []domain.PriceRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, domain.SerializationError(err)
	}
	return records, nil
}

func (jsonCodec) ContentType() string { return "application/json" }
func (jsonCodec) Extension() string   { return "json" }

type xlsxCodec struct{}

// NewXLSXCodec creates a codec for single-sheet spreadsheets with a header row
func NewXLSXCodec() Codec {
	return xlsxCodec{}
}

func (xlsxCodec) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (xlsxCodec) Extension() string { return "xlsx" }

func (xlsxCodec) Encode(records []domain.PriceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			uuidCell(rec.ID),
			uuidCell(rec.ProductID),
			uuidCell(rec.StoreID),
			rec.Amount,
			rec.RecordedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (xlsxCodec) Decode(payload []byte) ([]domain.PriceRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, domain.SerializationError(fmt.Errorf("failed to open xlsx: %w", err))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.SerializationError(errors.New("spreadsheet has no sheets"))
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, domain.SerializationError(fmt.Errorf("failed to read rows from xlsx: %w", err))
	}
	if len(rows) == 0 {
		return nil, domain.SerializationError(errors.New("spreadsheet has no header row"))
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range header[1:4] {
		if _, ok := columns[required]; !ok {
			return nil, domain.SerializationError(fmt.Errorf("missing column %q", required))
		}
	}

	records := []domain.PriceRecord{}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec, err := decodeRow(row, columns)
		if err != nil {
			return nil, domain.SerializationError(fmt.Errorf("row %d: %w", i+2, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRow(row []string, columns map[string]int) (domain.PriceRecord, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rec domain.PriceRecord
	var err error
	if rec.ID, err = parseUUIDCell(cell("id")); err != nil {
		return rec, fmt.Errorf("id: %w", err)
	}
	if rec.ProductID, err = parseUUIDCell(cell("product_id")); err != nil {
		return rec, fmt.Errorf("product_id: %w", err)
	}
	if rec.StoreID, err = parseUUIDCell(cell("store_id")); err != nil {
		return rec, fmt.Errorf("store_id: %w", err)
	}
	if rec.Amount, err = strconv.ParseInt(cell("amount"), 10, 64); err != nil {
		return rec, fmt.Errorf("amount: %w", err)
	}
	if raw := cell("recorded_at"); raw != "" {
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return rec, fmt.Errorf("recorded_at: %w", err)
		}
	}
	return rec, nil
}

func uuidCell(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func parseUUIDCell(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
