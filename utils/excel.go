package utils

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter writes whole sheets of tabular data with a styled header row
// and a frozen top pane.
type ExcelWriter struct {
	filePath string
	file     *excelize.File
	sheets   int
}

func NewExcelWriter(filePath string) *ExcelWriter {
	return &ExcelWriter{
		filePath: filePath,
		file:     excelize.NewFile(),
	}
}

// WriteSheet writes one sheet: a header row built from columns, then the
// data rows. The first sheet written replaces the workbook's default
// sheet.
func (w *ExcelWriter) WriteSheet(sheetName string, columns []string, rows [][]interface{}) error {
	if w.sheets == 0 {
		w.file.SetSheetName("Sheet1", sheetName)
	} else {
		if _, err := w.file.NewSheet(sheetName); err != nil {
			return fmt.Errorf("error creating sheet %s: %w", sheetName, err)
		}
	}
	w.sheets++

	headerStyle, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"44546A"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.file.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("error writing header cell: %w", err)
		}
	}
	if len(columns) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, 1)
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		if err := w.file.SetCellStyle(sheetName, first, last, headerStyle); err != nil {
			return fmt.Errorf("error styling header row: %w", err)
		}
	}

	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := w.file.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("error writing cell %s: %w", cell, err)
			}
		}
	}

	if err := w.file.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("error freezing header row: %w", err)
	}

	return nil
}

func (w *ExcelWriter) Save() error {
	if err := w.file.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("error saving Excel file: %w", err)
	}
	return nil
}

func (w *ExcelWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// ReadHeaderRow returns the first row of the first sheet of an existing
// workbook; the combiner uses this to load the reference column template.
func ReadHeaderRow(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s sheet %s is empty", filePath, sheets[0])
	}
	return rows[0], nil
}
