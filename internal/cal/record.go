package cal

import (
	"bufio"
	"strings"
)

// Record markers in the event file format. A record opens with beginMarker
// on its own line and is emitted only when the matching endMarker is seen.
const (
	beginMarker = "BEGIN:VEVENT"
	endMarker   = "END:VEVENT"
)

// Field names recognized by the entry builder. Records may carry other
// keys; they are kept in the map but not interpreted.
const (
	fieldStart      = "DTSTART"
	fieldEnd        = "DTEND"
	fieldRule       = "RRULE"
	fieldSummary    = "SUMMARY"
	fieldOverrideID = "RECURRENCE-ID"
)

// Record is one raw key/value event record plus the path of the file it
// came from. It only lives between the scanner and the entry builder.
type Record struct {
	Fields map[string]string
	Path   string
}

// ScanRecords splits raw event file text into records.
//
// Lines outside a BEGIN/END pair are ignored. Inside a record, each line of
// the form KEY[;params]:VALUE contributes one field; the parameter segment
// after ';' is dropped. Lines without a ':' are skipped without diagnostics
// (continuation and parameter-only lines are routine in the wild). A stray
// END is a no-op, and a record still open at EOF is never emitted.
func ScanRecords(text, path string) []Record {
	var records []Record
	var current map[string]string

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		switch line {
		case beginMarker:
			current = make(map[string]string)
			continue
		case endMarker:
			if current != nil {
				records = append(records, Record{Fields: current, Path: path})
				current = nil
			}
			continue
		}

		if current == nil {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			continue
		}
		// KEY;PARAM=...:VALUE -> keep only the key part.
		if i := strings.IndexByte(key, ';'); i >= 0 {
			key = key[:i]
		}
		current[key] = value
	}

	return records
}
