package cal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marchWindow() (time.Time, time.Time) {
	return localDate(2024, 3, 1, 0, 0), time.Date(2024, 3, 31, 23, 59, 59, 0, time.Local)
}

func TestBuildDayViewMultiDaySpan(t *testing.T) {
	// Date-precision entry from Mar 10 through Mar 13 exclusive: placed on
	// Mar 10, 11, 12 as span start/middle/end; nothing on Mar 13.
	e := Entry{
		Start:   mustTemporal(t, "20240310"),
		End:     temporalPtr(t, "20240313"),
		Summary: "Conference",
	}

	ws, we := marchWindow()
	days, _ := BuildDayView([]Entry{e}, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 3)
	wantSpan := []Span{SpanStart, SpanMiddle, SpanEnd}
	for i, d := range days {
		assert.Equal(t, localDate(2024, 3, 10+i, 0, 0), d.Date)
		require.Len(t, d.Items, 1)
		assert.Equal(t, wantSpan[i], d.Items[0].Span)
		assert.Equal(t, "Conference", d.Items[0].Occurrence.Summary)
	}
}

func TestBuildDayViewSingleDayHasNoSpan(t *testing.T) {
	e := Entry{
		Start:   mustTemporal(t, "20240310T100000"),
		End:     temporalPtr(t, "20240310T110000"),
		Summary: "Meeting",
	}

	ws, we := marchWindow()
	days, _ := BuildDayView([]Entry{e}, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 1)
	require.Len(t, days[0].Items, 1)
	assert.Equal(t, SpanNone, days[0].Items[0].Span)
}

func TestBuildDayViewNoEndSpansOnlyStartDay(t *testing.T) {
	e := Entry{
		Start:   mustTemporal(t, "20240310"),
		Summary: "Reminder",
	}

	ws, we := marchWindow()
	days, _ := BuildDayView([]Entry{e}, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 1)
	assert.Equal(t, localDate(2024, 3, 10, 0, 0), days[0].Date)
	assert.Equal(t, SpanNone, days[0].Items[0].Span)
}

func TestBuildDayViewClipsStartsOutsideWindow(t *testing.T) {
	before := Entry{Start: mustTemporal(t, "20240215T100000"), Summary: "Too early"}
	after := Entry{Start: mustTemporal(t, "20240401T100000"), Summary: "Too late"}
	inside := Entry{Start: mustTemporal(t, "20240315T100000"), Summary: "Kept"}

	ws, we := marchWindow()
	days, _ := BuildDayView([]Entry{before, after, inside}, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 1)
	require.Len(t, days[0].Items, 1)
	assert.Equal(t, "Kept", days[0].Items[0].Occurrence.Summary)
}

func TestBuildDayViewEveryPlacementIntersectsWindow(t *testing.T) {
	entries := []Entry{
		{Start: mustTemporal(t, "20240301T080000"), Rule: "FREQ=DAILY;INTERVAL=3", Summary: "Recurring"},
		{Start: mustTemporal(t, "20240329"), End: temporalPtr(t, "20240403"), Summary: "Spills past the window"},
	}

	ws, we := marchWindow()
	days, _ := BuildDayView(entries, ws, we, localDate(2024, 3, 1, 12, 0))

	require.NotEmpty(t, days)
	for _, d := range days {
		assert.False(t, d.Date.Before(ws), "bucket %s before window", d.Date)
		assert.False(t, d.Date.After(we), "bucket %s after window", d.Date)
		for _, item := range d.Items {
			occ := item.Occurrence
			assert.False(t, occ.Start.After(we))
			end := occ.End
			if !occ.HasEnd {
				end = occ.Start
			}
			assert.False(t, end.Before(ws))
		}
	}
}

func TestBuildDayViewStableOrderOnEqualStarts(t *testing.T) {
	shared := "20240315T100000"
	entries := []Entry{
		{Start: mustTemporal(t, shared), Summary: "First"},
		{Start: mustTemporal(t, shared), Summary: "Second"},
		{Start: mustTemporal(t, shared), Summary: "Third"},
	}

	ws, we := marchWindow()
	days, _ := BuildDayView(entries, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 1)
	require.Len(t, days[0].Items, 3)
	assert.Equal(t, "First", days[0].Items[0].Occurrence.Summary)
	assert.Equal(t, "Second", days[0].Items[1].Occurrence.Summary)
	assert.Equal(t, "Third", days[0].Items[2].Occurrence.Summary)
}

func TestBuildDayViewSortsAcrossEntries(t *testing.T) {
	entries := []Entry{
		{Start: mustTemporal(t, "20240315T170000"), Summary: "Evening"},
		{Start: mustTemporal(t, "20240315T080000"), Summary: "Morning"},
	}

	ws, we := marchWindow()
	days, _ := BuildDayView(entries, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 1)
	require.Len(t, days[0].Items, 2)
	assert.Equal(t, "Morning", days[0].Items[0].Occurrence.Summary)
	assert.Equal(t, "Evening", days[0].Items[1].Occurrence.Summary)
}

func TestBuildDayViewExceptionsAreNeverExpanded(t *testing.T) {
	base := Entry{
		Start:   mustTemporal(t, "20240311T090000"),
		Rule:    "FREQ=DAILY;COUNT=3",
		Summary: "Standup",
	}
	exception := Entry{
		Start:      mustTemporal(t, "20240312T140000"),
		Summary:    "Standup (moved)",
		OverrideID: temporalPtr(t, "20240312T090000"),
	}

	ws, we := marchWindow()
	days, _ := BuildDayView([]Entry{base, exception}, ws, we, localDate(2024, 3, 1, 12, 0))

	require.Len(t, days, 3)
	var summaries []string
	for _, d := range days {
		require.Len(t, d.Items, 1)
		summaries = append(summaries, d.Items[0].Occurrence.Summary)
	}
	assert.Equal(t, []string{"Standup", "Standup (moved)", "Standup"}, summaries)
}

func TestExpandEntriesCountsOrphanedExceptions(t *testing.T) {
	base := Entry{
		Start:   mustTemporal(t, "20240311T090000"),
		Rule:    "FREQ=DAILY;COUNT=3",
		Summary: "Standup",
	}
	matched := Entry{
		Start:      mustTemporal(t, "20240312T140000"),
		Summary:    "Standup (moved)",
		OverrideID: temporalPtr(t, "20240312T090000"),
	}
	orphan := Entry{
		Start:      mustTemporal(t, "20240320T090000"),
		Summary:    "Orphan",
		OverrideID: temporalPtr(t, "20240320T090000"),
	}

	ws, we := marchWindow()
	out, orphans := expandEntries([]Entry{base, matched, orphan}, ws, we)

	require.Len(t, out, 3)
	assert.Equal(t, 1, orphans, "only the unmatched exception counts as an orphan")

	// An exception with no base entry at all is also an orphan.
	_, orphans = expandEntries([]Entry{orphan}, ws, we)
	assert.Equal(t, 1, orphans)

	_, orphans = expandEntries([]Entry{base, matched}, ws, we)
	assert.Zero(t, orphans)
}

func TestExpandEntriesAggregateBudget(t *testing.T) {
	// Unbounded daily rules hit the per-entry cap at 1000 candidates each,
	// so 101 of them cross the aggregate budget on the last entry.
	entries := make([]Entry, 0, 101)
	for i := 0; i < 101; i++ {
		entries = append(entries, Entry{
			Start:   mustTemporal(t, "20240101T090000"),
			Rule:    "FREQ=DAILY",
			Summary: "Unbounded",
		})
	}

	out, _ := expandEntries(entries, localDate(2024, 1, 1, 0, 0), localDate(2030, 1, 1, 0, 0))

	assert.Len(t, out, maxTotalOccurrences, "output is truncated to the aggregate budget")
}

func TestBuildDayViewTodayIndex(t *testing.T) {
	e := Entry{Start: mustTemporal(t, "20240315T100000"), Summary: "Lunch"}

	ws, we := marchWindow()

	days, idx := BuildDayView([]Entry{e}, ws, we, localDate(2024, 3, 15, 18, 30))
	require.Len(t, days, 1)
	assert.Equal(t, 0, idx)

	// No bucket exists for a day without events.
	_, idx = BuildDayView([]Entry{e}, ws, we, localDate(2024, 3, 20, 9, 0))
	assert.Equal(t, -1, idx)
}
