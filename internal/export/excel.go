package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// ExcelRenderer .xlsx workbook: title row, bold framed header, frozen panes.
type ExcelRenderer struct{}

func (ExcelRenderer) Format() string { return FormatExcel }
func (ExcelRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (ExcelRenderer) Extension() string { return "xlsx" }

func (ExcelRenderer) Render(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// title, notes, blank line, header
	row := 1
	if err := setCell(f, 1, row, doc.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return fmt.Errorf("failed to set title style: %w", err)
	}
	for _, n := range doc.Notes {
		row++
		if err := setCell(f, 1, row, n); err != nil {
			return err
		}
	}
	row += 2
	headerRow := row

	widths := make([]int, len(doc.Headers))
	for col, h := range doc.Headers {
		if err := setCell(f, col+1, row, h); err != nil {
			return err
		}
		widths[col] = utf8.RuneCountInString(h)
	}
	if len(doc.Headers) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(doc.Headers), row)
		if err := f.SetCellStyle(sheetName, first, last, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for _, values := range doc.Rows {
		row++
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
			if col < len(widths) {
				if n := utf8.RuneCountInString(v); n > widths[col] {
					widths[col] = n
				}
			}
		}
	}

	for i, wd := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, float64(min(wd+2, 60))); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	topLeft, _ := excelize.CoordinatesToCellName(1, headerRow+1)
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: topLeft,
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
