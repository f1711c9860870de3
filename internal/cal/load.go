package cal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	applog "dircal/internal/log"
)

// Calendar is one loaded source directory: its display name and every
// entry parsed out of its files.
type Calendar struct {
	Name    string
	Entries []Entry
}

// LoadCalendar reads every direct-child regular file of dir and parses its
// event records into entries. The directory's base name becomes the
// calendar's display name.
//
// Unreadable files and entries without a usable start are logged and
// skipped; the load keeps going and returns whatever parsed. Only a
// missing or unreadable directory fails the load as a whole.
func LoadCalendar(dir string) (Calendar, error) {
	c := Calendar{Name: filepath.Base(filepath.Clean(dir))}

	children, err := os.ReadDir(dir)
	if err != nil {
		return Calendar{}, fmt.Errorf("read calendar dir: %w", err)
	}

	for _, child := range children {
		if !child.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, child.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			applog.Error("event file unreadable, skipping", err, "path", path)
			continue
		}

		for _, rec := range ScanRecords(string(data), path) {
			entry, err := BuildEntry(rec)
			if err != nil {
				applog.Warn("discarding event record", "reason", err.Error())
				continue
			}
			entry.Calendar = c.Name

			if entry.Rule != "" {
				if mods := IgnoredRuleModifiers(entry.Rule); len(mods) > 0 {
					applog.Warn("recurrence rule carries modifiers this engine ignores",
						"path", path, "modifiers", strings.Join(mods, ","))
				}
			}

			c.Entries = append(c.Entries, entry)
		}
	}

	applog.Info("calendar loaded", "name", c.Name, "dir", dir, "entry_count", len(c.Entries))
	return c, nil
}

// SourceDir names one calendar directory to load. An empty Name keeps the
// directory's base name as the display name.
type SourceDir struct {
	Dir  string
	Name string
}

// LoadCalendars loads several source directories, logging and dropping the
// ones that fail. The result keeps the input order.
func LoadCalendars(sources []SourceDir) []Calendar {
	out := make([]Calendar, 0, len(sources))
	for _, src := range sources {
		c, err := LoadCalendar(src.Dir)
		if err != nil {
			applog.Error("calendar load failed, skipping", err, "dir", src.Dir)
			continue
		}
		if src.Name != "" {
			c.Name = src.Name
			for i := range c.Entries {
				c.Entries[i].Calendar = src.Name
			}
		}
		out = append(out, c)
	}
	return out
}

// AllEntries flattens the loaded calendars into one entry list, keeping
// calendar order.
func AllEntries(calendars []Calendar) []Entry {
	var entries []Entry
	for _, c := range calendars {
		entries = append(entries, c.Entries...)
	}
	return entries
}
