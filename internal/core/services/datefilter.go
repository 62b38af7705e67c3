package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// DateFilter translates natural-language date expressions into concrete
// ranges in a fixed reference location, and post-filters items by their
// date_added metadata.
type DateFilter struct {
	loc *time.Location

	// now is swapped out in tests for a fixed reference time.
	now func() time.Time
}

// NewDateFilter creates a date filter in the given location.
// A nil location defaults to the process-local zone.
func NewDateFilter(loc *time.Location) *DateFilter {
	if loc == nil {
		loc = time.Local
	}
	f := &DateFilter{loc: loc}
	f.now = func() time.Time { return time.Now().In(loc) }
	return f
}

// relativeExpr matches "N days ago" style expressions.
var relativeExpr = regexp.MustCompile(`^(\d+)\s+(day|week|month|year)s?\s+ago$`)

// Parse translates an expression into a half-open [start, end) interval.
// Unrecognised expressions return *domain.UnparsableDateQuery carrying the
// supported grammar - never a silent default.
func (f *DateFilter) Parse(expr string) (DateRange, error) {
	now := f.now().In(f.loc)
	normalised := strings.ToLower(strings.TrimSpace(expr))

	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, f.loc)
	}
	week := func(t time.Time) time.Time {
		// ISO weeks: Monday is day 0.
		offset := (int(t.Weekday()) + 6) % 7
		return day(t).AddDate(0, 0, -offset)
	}
	month := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, f.loc)
	}
	year := func(t time.Time) time.Time {
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, f.loc)
	}

	switch normalised {
	case "today":
		start := day(now)
		return DateRange{Start: start, End: start.AddDate(0, 0, 1)}, nil
	case "yesterday":
		end := day(now)
		return DateRange{Start: end.AddDate(0, 0, -1), End: end}, nil
	case "this week":
		start := week(now)
		return DateRange{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case "last week":
		end := week(now)
		return DateRange{Start: end.AddDate(0, 0, -7), End: end}, nil
	case "this month":
		start := month(now)
		return DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case "last month":
		end := month(now)
		return DateRange{Start: end.AddDate(0, -1, 0), End: end}, nil
	case "this year":
		start := year(now)
		return DateRange{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case "last year":
		end := year(now)
		return DateRange{Start: end.AddDate(-1, 0, 0), End: end}, nil
	}

	if m := relativeExpr.FindStringSubmatch(normalised); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return DateRange{}, &domain.UnparsableDateQuery{Expression: expr}
		}
		switch m[2] {
		case "day":
			start := day(now).AddDate(0, 0, -n)
			return DateRange{Start: start, End: start.AddDate(0, 0, 1)}, nil
		case "week":
			start := week(now).AddDate(0, 0, -7*n)
			return DateRange{Start: start, End: start.AddDate(0, 0, 7)}, nil
		case "month":
			start := month(now).AddDate(0, -n, 0)
			return DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
		case "year":
			start := year(now).AddDate(-n, 0, 0)
			return DateRange{Start: start, End: start.AddDate(1, 0, 0)}, nil
		}
	}

	return DateRange{}, &domain.UnparsableDateQuery{Expression: expr}
}

// FilterItems keeps items whose date_added metadata falls inside r.
// Items without a parseable date_added are dropped: an undated item can
// never satisfy a date constraint.
func (f *DateFilter) FilterItems(items []domain.StoredItem, r DateRange) []domain.StoredItem {
	filtered := make([]domain.StoredItem, 0, len(items))
	for _, item := range items {
		added, ok := ParseDateAdded(item.Metadata[domain.MetaDateAdded])
		if !ok {
			continue
		}
		if r.Contains(added.In(f.loc)) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// dateLayouts are tried in order when parsing date_added values.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateAdded leniently parses a date_added metadata value: an ISO
// string in several layouts, or a map containing one under "date_added".
func ParseDateAdded(v any) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
		}
	case map[string]any:
		if inner, ok := value[domain.MetaDateAdded]; ok {
			return ParseDateAdded(inner)
		}
	}
	return time.Time{}, false
}
