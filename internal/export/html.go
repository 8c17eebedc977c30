package export

import (
	"html/template"
	"io"
)

const tableTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Doc.Title}}</title>
<style>
body{font-family:Arial,sans-serif;font-size:12px}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #999;padding:4px 6px;text-align:left}
th{background:#e6f3ff}
.note{color:#8a6d3b}
</style>
</head>
<body{{if .Print}} onload="window.print()"{{end}}>
<h2>{{.Doc.Title}}</h2>
<p>Generated {{.Doc.GeneratedAt.Format "2006-01-02 15:04"}}</p>
{{range .Doc.Notes}}<p class="note">{{.}}</p>
{{end}}<table>
<thead><tr>{{range .Doc.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Doc.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{else}}<tr><td colspan="{{len .Doc.Headers}}">No data</td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`

var tableTmpl = template.Must(template.New("table").Parse(tableTemplate))

type tableView struct {
	Doc   Document
	Print bool
}

// HTMLRenderer escaped table markup.
type HTMLRenderer struct{}

func (HTMLRenderer) Format() string      { return FormatHTML }
func (HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (HTMLRenderer) Extension() string   { return "html" }

func (HTMLRenderer) Render(w io.Writer, doc Document) error {
	return tableTmpl.Execute(w, tableView{Doc: doc})
}

// PrintRenderer printable page that opens the browser print dialog; the user
// saves it as PDF.
type PrintRenderer struct{}

func (PrintRenderer) Format() string      { return FormatPDF }
func (PrintRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (PrintRenderer) Extension() string   { return "html" }

func (PrintRenderer) Render(w io.Writer, doc Document) error {
	return tableTmpl.Execute(w, tableView{Doc: doc, Print: true})
}
