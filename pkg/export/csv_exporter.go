package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders one dataset per CSV document.
type CSVExporter struct {
	// Comma overrides the field delimiter when non-zero.
	Comma rune
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if e.Comma != 0 {
		writer.Comma = e.Comma
	}
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(data.Record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderSections renders every section, keyed by "<name>.csv".
func (e *CSVExporter) RenderSections(sections []Section) (map[string][]byte, error) {
	out := make(map[string][]byte, len(sections))
	for _, section := range sections {
		payload, err := e.Render(section.Data)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Name, err)
		}
		out[section.Name+".csv"] = payload
	}
	return out, nil
}
