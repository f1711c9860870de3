package cal

import (
	"fmt"
	"strings"
)

// Entry is the validated form of one event record.
//
// An Entry with OverrideID set is an exception: it replaces exactly one
// occurrence of some recurring entry and is never expanded itself.
type Entry struct {
	Start      Temporal
	End        *Temporal // exclusive end; nil when absent or unparseable
	Rule       string    // raw recurrence rule text, parsed at expansion time
	Summary    string
	OverrideID *Temporal // RECURRENCE-ID of the occurrence this entry replaces
	Calendar   string    // display name of the owning calendar
	Path       string    // source file, for diagnostics and the presentation layer
}

// IsException reports whether the entry overrides a single occurrence of
// another entry's expansion.
func (e *Entry) IsException() bool {
	return e.OverrideID != nil
}

// BuildEntry validates one record into an Entry.
//
// DTSTART is mandatory: a missing or malformed start fails the whole entry.
// DTEND and RECURRENCE-ID are parsed independently; when one of them does
// not parse the field is simply absent.
func BuildEntry(rec Record) (Entry, error) {
	rawStart, ok := rec.Fields[fieldStart]
	if !ok {
		return Entry{}, fmt.Errorf("%s: missing %s", rec.Path, fieldStart)
	}
	start, err := ParseTemporal(rawStart)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %s %q: %w", rec.Path, fieldStart, rawStart, err)
	}

	e := Entry{
		Start:   start,
		Rule:    rec.Fields[fieldRule],
		Summary: strings.TrimSpace(rec.Fields[fieldSummary]),
		Path:    rec.Path,
	}

	if raw, ok := rec.Fields[fieldEnd]; ok {
		if end, err := ParseTemporal(raw); err == nil {
			e.End = &end
		}
	}
	if raw, ok := rec.Fields[fieldOverrideID]; ok {
		if id, err := ParseTemporal(raw); err == nil {
			e.OverrideID = &id
		}
	}

	return e, nil
}
