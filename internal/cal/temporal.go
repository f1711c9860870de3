package cal

import (
	"errors"
	"time"
)

// Precision says how much of a Temporal's instant is meaningful.
type Precision int

const (
	// PrecisionDate values represent a whole calendar day; their instant
	// is always local midnight of that day.
	PrecisionDate Precision = iota
	// PrecisionDateTime values are meaningful to the second.
	PrecisionDateTime
)

// ErrInvalidDateFormat is returned for any value that is neither a
// YYYYMMDD date nor a YYYYMMDDTHHMMSS date-time.
var ErrInvalidDateFormat = errors.New("invalid date format")

const (
	layoutDate     = "20060102"
	layoutDateTime = "20060102T150405"
)

// Temporal is a parsed date or date-time value. All values are floating
// local time: no time-zone designators are honored in the source data.
type Temporal struct {
	Precision Precision
	Time      time.Time
}

// ParseTemporal parses a DTSTART-style value.
//
//	20240310        -> date precision, local midnight
//	20240310T143000 -> date-time precision, local wall clock
//
// Anything else fails with ErrInvalidDateFormat; the caller decides whether
// the owning entry survives.
func ParseTemporal(s string) (Temporal, error) {
	switch len(s) {
	case len(layoutDate):
		t, err := time.ParseInLocation(layoutDate, s, time.Local)
		if err != nil {
			return Temporal{}, ErrInvalidDateFormat
		}
		return Temporal{Precision: PrecisionDate, Time: t}, nil
	case len(layoutDateTime):
		t, err := time.ParseInLocation(layoutDateTime, s, time.Local)
		if err != nil {
			return Temporal{}, ErrInvalidDateFormat
		}
		return Temporal{Precision: PrecisionDateTime, Time: t}, nil
	default:
		return Temporal{}, ErrInvalidDateFormat
	}
}

// StartOfDay returns local midnight of the calendar day containing t.
// It goes through field decomposition rather than truncating seconds so
// that local offset transitions are absorbed by the calendar.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
