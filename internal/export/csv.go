package export

import (
	"encoding/csv"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVRenderer UTF-8 BOM (for Excel), a title line, then header and rows.
type CSVRenderer struct{}

func (CSVRenderer) Format() string      { return FormatCSV }
func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVRenderer) Extension() string   { return "csv" }

func (CSVRenderer) Render(w io.Writer, doc Document) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{doc.Title}); err != nil {
		return err
	}
	for _, n := range doc.Notes {
		if err := cw.Write([]string{n}); err != nil {
			return err
		}
	}
	if err := cw.Write(doc.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(doc.Rows); err != nil {
		return err
	}
	return cw.Error()
}
