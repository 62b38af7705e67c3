package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// newFixedDateFilter returns a filter whose "now" is Friday 2025-01-10
// 15:30 UTC.
func newFixedDateFilter(t *testing.T) *DateFilter {
	t.Helper()
	f := NewDateFilter(time.UTC)
	f.now = func() time.Time {
		return time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	}
	return f
}

func TestDateFilter_Parse(t *testing.T) {
	f := newFixedDateFilter(t)

	tests := []struct {
		expr  string
		start time.Time
		end   time.Time
	}{
		{
			expr:  "today",
			start: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "Yesterday",
			start: time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			// Week starts Monday 2025-01-06.
			expr:  "this week",
			start: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "last week",
			start: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "last month",
			start: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "last year",
			start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// A single day, three days back.
			expr:  "3 days ago",
			start: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "2 weeks ago",
			start: time.Date(2024, 12, 23, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			expr:  "1 month ago",
			start: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r, err := f.Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.Start)
			assert.Equal(t, tt.end, r.End)
		})
	}
}

func TestDateFilter_Parse_Unparsable(t *testing.T) {
	f := newFixedDateFilter(t)

	for _, expr := range []string{"", "around christmas", "3 fortnights ago", "tomorrow"} {
		_, err := f.Parse(expr)
		require.Error(t, err, expr)

		var unparsable *domain.UnparsableDateQuery
		assert.True(t, errors.As(err, &unparsable), "expr %q should yield UnparsableDateQuery", expr)
	}
}

func TestDateRange_Contains_HalfOpen(t *testing.T) {
	r := DateRange{
		Start: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, r.Contains(r.Start), "start is inclusive")
	assert.True(t, r.Contains(time.Date(2025, 1, 7, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(r.End), "end is exclusive")
	assert.False(t, r.Contains(r.Start.Add(-time.Second)))
}

func TestDateFilter_FilterItems(t *testing.T) {
	f := newFixedDateFilter(t)
	r := DateRange{
		Start: time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}

	items := []domain.StoredItem{
		{ID: "in", Metadata: map[string]any{domain.MetaDateAdded: "2025-01-09T12:00:00Z"}},
		{ID: "out", Metadata: map[string]any{domain.MetaDateAdded: "2025-01-03T12:00:00Z"}},
		{ID: "undated", Metadata: map[string]any{}},
		{ID: "garbage", Metadata: map[string]any{domain.MetaDateAdded: "not a date"}},
	}

	filtered := f.FilterItems(items, r)

	require.Len(t, filtered, 1)
	assert.Equal(t, "in", filtered[0].ID)
}

func TestParseDateAdded(t *testing.T) {
	t.Run("layouts", func(t *testing.T) {
		for _, value := range []string{
			"2025-01-09T12:00:00.123Z",
			"2025-01-09T12:00:00Z",
			"2025-01-09T12:00:00",
			"2025-01-09 12:00:00",
			"2025-01-09",
		} {
			parsed, ok := ParseDateAdded(value)
			assert.True(t, ok, value)
			assert.Equal(t, 2025, parsed.Year(), value)
		}
	})

	t.Run("time value passes through", func(t *testing.T) {
		now := time.Now()
		parsed, ok := ParseDateAdded(now)
		assert.True(t, ok)
		assert.Equal(t, now, parsed)
	})

	t.Run("nested map", func(t *testing.T) {
		parsed, ok := ParseDateAdded(map[string]any{domain.MetaDateAdded: "2025-01-09"})
		assert.True(t, ok)
		assert.Equal(t, 9, parsed.Day())
	})

	t.Run("unparseable", func(t *testing.T) {
		_, ok := ParseDateAdded(42)
		assert.False(t, ok)
		_, ok = ParseDateAdded(nil)
		assert.False(t, ok)
	})
}
