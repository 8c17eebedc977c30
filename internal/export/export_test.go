package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDoc() Document {
	return Document{
		Title:   "Division Wise Report - Mannar District",
		Headers: []string{"Division", "Families", "Percentage"},
		Rows: [][]string{
			{"Mannar Town", "1,204", "60.0%"},
			{"Madhu <north>", "803", "40.0%"},
		},
		Notes:       []string{"1 GN office(s) have no division mapping"},
		GeneratedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := DefaultRegistry()

	for _, f := range []string{"html", "CSV", "excel", "xlsx", "pdf"} {
		_, ok := reg.Lookup(f)
		assert.True(t, ok, f)
	}
	_, ok := reg.Lookup("docx")
	assert.False(t, ok)
	assert.Equal(t, []string{"csv", "excel", "html", "pdf"}, reg.Formats())
}

func TestCSVRenderer_BOMTitleAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVRenderer{}.Render(&buf, sampleDoc()))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM))
	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	assert.Equal(t, "Division Wise Report - Mannar District", lines[0])
	assert.Equal(t, "Division,Families,Percentage", lines[2])
	assert.Equal(t, `Mannar Town,"1,204",60.0%`, lines[3])
}

func TestHTMLRenderer_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTMLRenderer{}.Render(&buf, sampleDoc()))

	out := buf.String()
	assert.Contains(t, out, "<th>Division</th>")
	assert.Contains(t, out, "Madhu &lt;north&gt;")
	assert.NotContains(t, out, "window.print()")
}

func TestHTMLRenderer_EmptyRows(t *testing.T) {
	doc := sampleDoc()
	doc.Rows = nil
	var buf bytes.Buffer
	require.NoError(t, HTMLRenderer{}.Render(&buf, doc))
	assert.Contains(t, buf.String(), `<td colspan="3">No data</td>`)
}

func TestPrintRenderer_TriggersPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintRenderer{}.Render(&buf, sampleDoc()))
	assert.Contains(t, buf.String(), `onload="window.print()"`)
}

func TestExcelRenderer_Workbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExcelRenderer{}.Render(&buf, sampleDoc()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Division Wise Report - Mannar District", title)

	// title, one note, blank line, header on row 4
	header, err := f.GetCellValue(sheetName, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Families", header)
	v, err := f.GetCellValue(sheetName, "A6")
	require.NoError(t, err)
	assert.Equal(t, "Madhu <north>", v)
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "division_wise_report_mannar_district_20240301.csv",
		FileName("Division Wise Report - Mannar District", "csv", at))
	assert.Equal(t, "report_20240301.xlsx", FileName("  ", "xlsx", at))
}
