package repository

import (
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// predicateBuilder composes WHERE fragments with positional ($n) parameters.
// Only column names chosen by the repository are spliced into SQL; every
// caller-supplied value becomes an argument.
type predicateBuilder struct {
	clauses []string
	args    []any
}

func newPredicateBuilder() *predicateBuilder {
	return &predicateBuilder{}
}

// arg registers v and returns its placeholder.
func (b *predicateBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// raw adds a fixed clause that carries no parameters.
func (b *predicateBuilder) raw(clause string) *predicateBuilder {
	b.clauses = append(b.clauses, clause)
	return b
}

// scope restricts column to the filter's GN set unless the filter covers all GN offices.
func (b *predicateBuilder) scope(column string, f StatsFilter) *predicateBuilder {
	if f.AllGn {
		return b
	}
	b.clauses = append(b.clauses, column+" = ANY("+b.arg(pq.Array(f.GnCodes))+")")
	return b
}

// dateRange bounds column by the filter's registration window (inclusive).
func (b *predicateBuilder) dateRange(column string, f StatsFilter) *predicateBuilder {
	switch {
	case f.From != nil && f.To != nil:
		from := b.arg(f.From.Format("2006-01-02"))
		to := b.arg(f.To.Format("2006-01-02"))
		b.clauses = append(b.clauses, column+"::date BETWEEN "+from+"::date AND "+to+"::date")
	case f.From != nil:
		b.clauses = append(b.clauses, column+"::date >= "+b.arg(f.From.Format("2006-01-02"))+"::date")
	case f.To != nil:
		b.clauses = append(b.clauses, column+"::date <= "+b.arg(f.To.Format("2006-01-02"))+"::date")
	}
	return b
}

// families applies the standard family predicate (scope + registration window)
// to a families alias.
func (b *predicateBuilder) families(alias string, f StatsFilter) *predicateBuilder {
	return b.scope(alias+".current_gn_office_code", f).dateRange(alias+".registration_date", f)
}

// where renders " WHERE a AND b ..." or "" when there are no clauses.
func (b *predicateBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

func (b *predicateBuilder) params() []any {
	return b.args
}
