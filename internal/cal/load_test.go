package cal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEventFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCalendar(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "personal")
	require.NoError(t, os.Mkdir(dir, 0o700))

	good := writeEventFile(t, dir, "events.cal",
		"BEGIN:VEVENT\nDTSTART:20240310T100000\nSUMMARY:Dentist\nEND:VEVENT\n"+
			"BEGIN:VEVENT\nSUMMARY:no start, discarded\nEND:VEVENT\n")
	writeEventFile(t, dir, "more.cal",
		"BEGIN:VEVENT\nDTSTART:20240311\nSUMMARY:Holiday\nEND:VEVENT\n")

	// Subdirectories are not read.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	c, err := LoadCalendar(dir)

	require.NoError(t, err)
	assert.Equal(t, "personal", c.Name, "display name is the directory base name")
	require.Len(t, c.Entries, 2)
	assert.Equal(t, "Dentist", c.Entries[0].Summary)
	assert.Equal(t, good, c.Entries[0].Path)
	assert.Equal(t, "personal", c.Entries[0].Calendar)
	assert.Equal(t, "Holiday", c.Entries[1].Summary)
}

func TestLoadCalendarMissingDir(t *testing.T) {
	_, err := LoadCalendar(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadCalendars(t *testing.T) {
	base := t.TempDir()
	workDir := filepath.Join(base, "work")
	require.NoError(t, os.Mkdir(workDir, 0o700))
	writeEventFile(t, workDir, "events.cal",
		"BEGIN:VEVENT\nDTSTART:20240310T100000\nSUMMARY:Standup\nEND:VEVENT\n")

	calendars := LoadCalendars([]SourceDir{
		{Dir: workDir, Name: "Team"},
		{Dir: filepath.Join(base, "missing")}, // reported and skipped
	})

	require.Len(t, calendars, 1, "an unreadable directory does not abort the load")
	assert.Equal(t, "Team", calendars[0].Name, "configured name overrides the base name")
	require.Len(t, calendars[0].Entries, 1)
	assert.Equal(t, "Team", calendars[0].Entries[0].Calendar)

	entries := AllEntries(calendars)
	require.Len(t, entries, 1)
	assert.Equal(t, "Standup", entries[0].Summary)
}
