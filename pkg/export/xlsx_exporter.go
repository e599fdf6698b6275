package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Scores"

// XLSXExporter renders documents into a single sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the title and meta lines above the table. Cells that parse
// as numbers are stored as numbers.
func (e *XLSXExporter) Render(doc Document) ([]byte, error) {
	data := doc.Data
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("name xlsx sheet: %w", err)
	}

	row := 1
	if doc.Title != "" {
		if err := f.SetCellValue(xlsxSheet, cellName(1, row), doc.Title); err != nil {
			return nil, err
		}
		row++
	}
	for _, line := range doc.Meta {
		if err := f.SetCellValue(xlsxSheet, cellName(1, row), line); err != nil {
			return nil, err
		}
		row++
	}
	if row > 1 {
		row++
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	for col, header := range data.Headers {
		if err := f.SetCellValue(xlsxSheet, cellName(col+1, row), header); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(xlsxSheet, cellName(1, row), cellName(len(data.Headers), row), headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for _, values := range data.Rows {
		row++
		for col, value := range data.record(values) {
			var cell interface{} = value
			if n, err := strconv.ParseFloat(value, 64); err == nil && col > 0 {
				cell = n
			}
			if err := f.SetCellValue(xlsxSheet, cellName(col+1, row), cell); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}
