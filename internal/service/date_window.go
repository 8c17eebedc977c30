package service

import (
	"strings"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/repository"
)

const dateLayout = "2006-01-02"

// Window registration-date window applied to family-based predicates.
// Both bounds are inclusive calendar days.
type Window struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Unbounded bool      `json:"unbounded"`
}

// UnboundedWindow no registration date restriction.
func UnboundedWindow() Window {
	return Window{Unbounded: true}
}

// DefaultWindow first day of now's month through now (current month to date).
func DefaultWindow(now time.Time) Window {
	today := truncateDay(now)
	return Window{
		From: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()),
		To:   today,
	}
}

// ResolveWindow parses a requested date range. Missing bounds take the default
// window's bound. Anything unparsable, or from > to, yields the default window
// with substituted = true; invalid input is never an error.
func ResolveWindow(from, to string, now time.Time) (Window, bool) {
	def := DefaultWindow(now)
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return def, false
	}

	w := def
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, now.Location())
		if err != nil {
			return def, true
		}
		w.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, now.Location())
		if err != nil {
			return def, true
		}
		w.To = t
	}
	if w.From.After(w.To) {
		return def, true
	}
	return w, false
}

// Apply sets the window bounds on a stats filter.
func (w Window) Apply(f repository.StatsFilter) repository.StatsFilter {
	if w.Unbounded {
		f.From, f.To = nil, nil
		return f
	}
	from, to := w.From, w.To
	f.From, f.To = &from, &to
	return f
}

func (w Window) String() string {
	if w.Unbounded {
		return "all dates"
	}
	return w.From.Format(dateLayout) + " to " + w.To.Format(dateLayout)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
