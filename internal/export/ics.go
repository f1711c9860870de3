// Package export writes expanded occurrences back out as a standard
// iCalendar stream, so other tools can consume a window of the merged
// schedule without knowing the source format's restrictions.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"dircal/internal/cal"
)

// WriteICS serializes occurrences as a VCALENDAR of plain (non-recurring)
// VEVENTs. Recurrence is already expanded, so every occurrence becomes its
// own event; all-day occurrences keep date-only DTSTART/DTEND.
func WriteICS(w io.Writer, occurrences []cal.Occurrence) error {
	c := ics.NewCalendar()
	c.SetMethod(ics.MethodPublish)
	c.SetProductId("-//dircal//day view export//EN")

	now := time.Now()
	for _, occ := range occurrences {
		ev := c.AddEvent(occurrenceUID(occ))
		ev.SetDtStampTime(now)
		if occ.Summary != "" {
			ev.SetSummary(occ.Summary)
		}
		if occ.Calendar != "" {
			ev.SetProperty(ics.ComponentPropertyCategories, occ.Calendar)
		}

		if occ.AllDay {
			ev.SetAllDayStartAt(occ.Start)
			if occ.HasEnd {
				ev.SetAllDayEndAt(occ.End)
			}
		} else {
			ev.SetStartAt(occ.Start)
			if occ.HasEnd {
				ev.SetEndAt(occ.End)
			}
		}
	}

	return c.SerializeTo(w)
}

// occurrenceUID derives a stable per-occurrence identifier from the source
// path and the concrete start instant.
func occurrenceUID(occ cal.Occurrence) string {
	sum := sha256.Sum256([]byte(occ.Path))
	return fmt.Sprintf("%s-%s@dircal", hex.EncodeToString(sum[:8]), occ.Start.Format("20060102T150405"))
}
