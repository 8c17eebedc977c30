// Package export turns assembled report documents into downloadable artifacts.
package export

import (
	"io"
	"sort"
	"strings"
	"time"
)

// Document already-formatted report content. Renderers do no number formatting.
type Document struct {
	Title       string
	Headers     []string
	Rows        [][]string
	Notes       []string // advisory lines (warnings), rendered under the title
	GeneratedAt time.Time
}

type Renderer interface {
	Format() string
	ContentType() string
	Extension() string
	Render(w io.Writer, doc Document) error
}

// Registry renderers by output format.
type Registry struct {
	renderers map[string]Renderer
}

func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: map[string]Renderer{}}
	for _, rd := range renderers {
		r.renderers[rd.Format()] = rd
	}
	return r
}

// DefaultRegistry html, csv, excel and pdf (print view).
func DefaultRegistry() *Registry {
	return NewRegistry(HTMLRenderer{}, CSVRenderer{}, ExcelRenderer{}, PrintRenderer{})
}

// Lookup format names are case-insensitive; "xlsx" is accepted for excel.
func (r *Registry) Lookup(format string) (Renderer, bool) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "xlsx" {
		f = FormatExcel
	}
	rd, ok := r.renderers[f]
	return rd, ok
}

func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.renderers))
	for f := range r.renderers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

const (
	FormatHTML  = "html"
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatPDF   = "pdf"
)

// FileName safe download name derived from the title.
func FileName(title, ext string, at time.Time) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(title) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		name = "report"
	}
	return name + "_" + at.Format("20060102") + "." + ext
}
