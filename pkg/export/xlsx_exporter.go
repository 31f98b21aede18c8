package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name spreadsheet applications accept.
const maxSheetName = 31

// XLSXExporter renders sections as worksheets of one workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes one sheet per section, headers on the first row.
func (e *XLSXExporter) Render(sections []Section) ([]byte, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one section")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	defaultSheet := f.GetSheetName(0)
	for i, section := range sections {
		name := section.Name
		if len(name) > maxSheetName {
			name = name[:maxSheetName]
		}
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, section.Data); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, data Dataset) error {
	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s headers: %w", sheet, err)
	}
	for i, row := range data.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		record := data.Record(row)
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
