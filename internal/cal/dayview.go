package cal

import (
	"sort"
	"time"

	applog "dircal/internal/log"
)

// maxTotalOccurrences bounds the aggregate expansion across all entries of
// one projection. Individual entries are already capped, but many entries
// with open-ended rules could still be slow in aggregate.
const maxTotalOccurrences = 100000

// Span classifies one day placement of a multi-day date-precision
// occurrence. Single-day placements are SpanNone.
type Span int

const (
	SpanNone Span = iota
	SpanStart
	SpanMiddle
	SpanEnd
)

func (s Span) String() string {
	switch s {
	case SpanStart:
		return "start"
	case SpanMiddle:
		return "middle"
	case SpanEnd:
		return "end"
	default:
		return ""
	}
}

// Placement is one occurrence's slot in one day bucket.
type Placement struct {
	Occurrence Occurrence
	Span       Span
}

// Day is the bucket of placements for one calendar day.
type Day struct {
	Date  time.Time // local midnight
	Items []Placement
}

// BuildDayView expands entries into the window [windowStart, windowEnd]
// and buckets the result by calendar day.
//
// Entries carrying an override id are treated as exceptions and only ever
// surface through the expansion of a base entry. Occurrences are sorted by
// start instant; the sort is stable so that events sharing an instant keep
// their input order. Each occurrence lands in every day bucket it
// intersects; a multi-day date-precision occurrence is marked span
// start/middle/end per day.
//
// The returned days are sorted ascending. todayIndex is the position of
// the bucket for now's calendar day, -1 when that day holds no events.
func BuildDayView(entries []Entry, windowStart, windowEnd, now time.Time) (days []Day, todayIndex int) {
	occurrences := ExpandAll(entries, windowStart, windowEnd)

	// Final safety clip, independent of the per-rule window test.
	buckets := make(map[time.Time]*Day)
	for _, occ := range occurrences {
		if occ.Start.After(windowEnd) || occ.Start.Before(windowStart) {
			continue
		}
		placeOccurrence(buckets, occ, windowStart, windowEnd)
	}

	days = make([]Day, 0, len(buckets))
	for _, d := range buckets {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	todayIndex = -1
	today := StartOfDay(now)
	for i := range days {
		if days[i].Date.Equal(today) {
			todayIndex = i
			break
		}
	}
	return days, todayIndex
}

// ExpandAll expands every base entry against the exception entries and
// returns the merged, stably sorted occurrence list. The list is not yet
// clipped to the window. Exceptions whose override id matched no generated
// instant are counted and reported at debug level.
func ExpandAll(entries []Entry, windowStart, windowEnd time.Time) []Occurrence {
	out, orphans := expandEntries(entries, windowStart, windowEnd)
	if orphans > 0 {
		applog.Debug("exceptions matched no generated occurrence", "count", orphans)
	}
	return out
}

func expandEntries(entries []Entry, windowStart, windowEnd time.Time) (out []Occurrence, orphans int) {
	var exceptions []Entry
	var base []Entry
	for _, e := range entries {
		if e.IsException() {
			exceptions = append(exceptions, e)
		} else {
			base = append(base, e)
		}
	}

	used := make([]bool, len(exceptions))
	for _, e := range base {
		occ := expandEntry(e, exceptions, windowStart, windowEnd, used)
		if len(out)+len(occ) > maxTotalOccurrences {
			applog.Warn("expansion budget exhausted, dropping remaining entries",
				"budget", maxTotalOccurrences, "path", e.Path)
			out = append(out, occ[:maxTotalOccurrences-len(out)]...)
			break
		}
		out = append(out, occ...)
	}

	for _, consumed := range used {
		if !consumed {
			orphans++
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, orphans
}

// placeOccurrence walks the calendar days an occurrence intersects and
// inserts it into each bucket lying within the window. End is exclusive:
// an occurrence without an end covers only its start day.
func placeOccurrence(buckets map[time.Time]*Day, occ Occurrence, windowStart, windowEnd time.Time) {
	startDay := StartOfDay(occ.Start)
	multiDay := occ.AllDay && occ.HasEnd && StartOfDay(occ.End.Add(-24*time.Hour)).After(startDay)
	// Last intersected day of a date-precision span: the day before the
	// exclusive end.
	lastDay := StartOfDay(occ.End.Add(-24 * time.Hour))

	for dayCursor := startDay; ; {
		if !dayCursor.Before(windowStart) && !dayCursor.After(windowEnd) {
			span := SpanNone
			if multiDay {
				switch {
				case dayCursor.Equal(startDay):
					span = SpanStart
				case dayCursor.Equal(lastDay):
					span = SpanEnd
				default:
					span = SpanMiddle
				}
			}
			d, ok := buckets[dayCursor]
			if !ok {
				d = &Day{Date: dayCursor}
				buckets[dayCursor] = d
			}
			d.Items = append(d.Items, Placement{Occurrence: occ, Span: span})
		}

		dayCursor = StartOfDay(Advance(dayCursor, 1, FreqDaily))
		if !dayCursor.Before(occ.End) {
			break
		}
	}
}
