package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ColumnKind display class of a report column. All number formatting goes
// through Formatter so every report renders numbers the same way.
type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindInteger ColumnKind = "integer" // thousands separators
	KindDecimal ColumnKind = "decimal" // exactly 2 dp, thousands separators
	KindPercent ColumnKind = "percent" // exactly 1 dp + "%"
	KindDate    ColumnKind = "date"
)

// Formatter display formatting policy. Rounding is half away from zero.
type Formatter struct{}

func (Formatter) Integer(n int64) string {
	return humanize.Comma(n)
}

// Decimal rounds to 2 dp first, then groups the whole part.
func (Formatter) Decimal(d decimal.Decimal) string {
	r := d.Round(2)
	abs := r.Abs()
	fixed := abs.StringFixed(2)
	out := humanize.BigComma(abs.Truncate(0).BigInt()) + fixed[strings.IndexByte(fixed, '.'):]
	if r.IsNegative() {
		out = "-" + out
	}
	return out
}

func (Formatter) Percent(p float64) string {
	return toDecimal(p).StringFixed(1) + "%"
}

func (Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// Format renders v according to kind. Unsupported combinations fall back to %v.
func (f Formatter) Format(kind ColumnKind, v any) string {
	switch kind {
	case KindInteger:
		switch n := v.(type) {
		case int:
			return f.Integer(int64(n))
		case int64:
			return f.Integer(n)
		case float64:
			return f.Integer(int64(math.Round(n)))
		case decimal.Decimal:
			return f.Integer(n.Round(0).IntPart())
		}
	case KindDecimal:
		switch n := v.(type) {
		case decimal.Decimal:
			return f.Decimal(n)
		case float64:
			return f.Decimal(toDecimal(n))
		case int:
			return f.Decimal(decimal.NewFromInt(int64(n)))
		case int64:
			return f.Decimal(decimal.NewFromInt(n))
		}
	case KindPercent:
		switch n := v.(type) {
		case float64:
			return f.Percent(n)
		case decimal.Decimal:
			return f.Percent(n.InexactFloat64())
		}
	case KindDate:
		switch t := v.(type) {
		case time.Time:
			return f.Date(t)
		case string:
			return t
		}
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
