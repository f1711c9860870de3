package cal

import (
	"time"

	applog "dircal/internal/log"
)

// maxOccurrencesPerEntry is the hard safety cap on candidates generated
// for a single entry. It guarantees termination even for a rule whose
// UNTIL/COUNT bounds are missing or nonsensical.
const maxOccurrencesPerEntry = 1000

// Occurrence is one concrete instance of an entry, with start and end
// rebound to a specific instant pair. It never shares storage with the
// entry it came from.
type Occurrence struct {
	Summary  string
	Calendar string
	Path     string

	AllDay bool // start parsed with date precision
	HasEnd bool

	Start time.Time
	End   time.Time // exclusive; equals Start when the entry has no end
}

// Expand turns one base entry into its concrete occurrences within the
// window [windowStart, windowEnd].
//
// An entry without a rule yields exactly one occurrence, window ignored;
// clipping is the projector's job. Recurring entries are generated from
// the entry start, stepping by the rule's frequency and interval, until
// UNTIL (inclusive) or COUNT is exhausted, the candidate passes windowEnd,
// or the per-entry safety cap trips. Candidates whose occurrence ends
// before the window opens are skipped but still consume a COUNT/cap step.
//
// Each accepted instant is checked against the exceptions: an exception
// whose override id equals the instant exactly is emitted in place of the
// computed occurrence, carrying its own start and end.
func Expand(e Entry, exceptions []Entry, windowStart, windowEnd time.Time) []Occurrence {
	return expandEntry(e, exceptions, windowStart, windowEnd, nil)
}

// expandEntry is Expand with consumption tracking: when usedExceptions is
// non-nil, the slot of every exception substituted into the output is
// marked, so the caller can report the orphans afterwards.
func expandEntry(e Entry, exceptions []Entry, windowStart, windowEnd time.Time, usedExceptions []bool) []Occurrence {
	if e.Rule == "" {
		return []Occurrence{occurrenceAt(e, e.Start.Time)}
	}

	r := ParseRule(e.Rule)
	if r.Freq == FreqNone {
		// A frequency the engine does not know would never advance, so
		// treat the entry as non-recurring rather than emitting the same
		// instant up to the cap.
		applog.Warn("recurrence rule without usable FREQ, treating as single event",
			"path", e.Path, "rule", e.Rule)
		return []Occurrence{occurrenceAt(e, e.Start.Time)}
	}

	var offset time.Duration
	if e.End != nil {
		offset = e.End.Time.Sub(e.Start.Time)
	}

	var out []Occurrence
	cur := e.Start.Time
	for generated := 0; generated < maxOccurrencesPerEntry; generated++ {
		if r.Until != nil && cur.After(r.Until.Time) {
			break
		}
		if r.Count > 0 && generated >= r.Count {
			break
		}
		if cur.After(windowEnd) {
			break
		}

		// Emit only occurrences overlapping the window; earlier ones are
		// skipped but the step above still counted them.
		if !cur.Before(windowStart) || cur.Add(offset).After(windowStart) {
			if i := findException(exceptions, cur); i >= 0 {
				if usedExceptions != nil {
					usedExceptions[i] = true
				}
				out = append(out, occurrenceAt(exceptions[i], exceptions[i].Start.Time))
			} else {
				out = append(out, occurrenceAt(e, cur))
			}
		}

		cur = Advance(cur, r.Interval, r.Freq)
	}

	return out
}

// findException returns the index of the exception whose override id
// matches instant exactly, or -1. Matching is by instant equality only;
// no precision coercion and no tolerance.
func findException(exceptions []Entry, instant time.Time) int {
	for i := range exceptions {
		id := exceptions[i].OverrideID
		if id != nil && id.Time.Equal(instant) {
			return i
		}
	}
	return -1
}

// occurrenceAt copies e into an occurrence starting at the given instant,
// preserving the entry's fixed start-to-end offset (zero when no end).
func occurrenceAt(e Entry, start time.Time) Occurrence {
	occ := Occurrence{
		Summary:  e.Summary,
		Calendar: e.Calendar,
		Path:     e.Path,
		AllDay:   e.Start.Precision == PrecisionDate,
		Start:    start,
		End:      start,
	}
	if e.End != nil {
		occ.HasEnd = true
		occ.End = start.Add(e.End.Time.Sub(e.Start.Time))
	}
	return occ
}
