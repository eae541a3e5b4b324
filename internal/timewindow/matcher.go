package timewindow

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"time"

	"photodesk/internal/photos"
	"photodesk/internal/shootdate"
)

// DefaultBuffer pads both ends of every appointment window.
const DefaultBuffer = 10 * time.Minute

var filenameStamp = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`)

// Appointment is a booked session. Key identifies it to the caller.
type Appointment struct {
	Key      string
	Customer string
	Start    time.Time
	End      time.Time
}

// File is an intake file with its resolved capture time.
type File struct {
	Path      string
	Timestamp time.Time
}

// Assignment lists the files claimed by one appointment.
type Assignment struct {
	Appointment Appointment
	Files       []File
}

// Matcher computes appointment windows.
type Matcher struct {
	Buffer time.Duration
}

// NewMatcher returns a matcher; a non-positive buffer selects DefaultBuffer.
func NewMatcher(buffer time.Duration) Matcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return Matcher{Buffer: buffer}
}

// Window returns the inclusive buffered window of appt.
func (m Matcher) Window(appt Appointment) (time.Time, time.Time) {
	return appt.Start.Add(-m.Buffer), appt.End.Add(m.Buffer)
}

// Contains reports whether ts lies inside appt's window, bounds included.
func (m Matcher) Contains(appt Appointment, ts time.Time) bool {
	from, to := m.Window(appt)
	return !ts.Before(from) && !ts.After(to)
}

// Assign returns one Assignment per appointment, most recent start first.
// Each file appears in at most one assignment. Inputs are not modified.
func (m Matcher) Assign(appts []Appointment, files []File) []Assignment {
	ordered := make([]Appointment, len(appts))
	copy(ordered, appts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.After(ordered[j].Start)
	})

	claimed := make([]bool, len(files))
	out := make([]Assignment, 0, len(ordered))
	for _, appt := range ordered {
		assignment := Assignment{Appointment: appt}
		for i, f := range files {
			if claimed[i] || !m.Contains(appt, f.Timestamp) {
				continue
			}
			claimed[i] = true
			assignment.Files = append(assignment.Files, f)
		}
		out = append(out, assignment)
	}
	return out
}

// ResolveTimestamp reads a YYYYMMDD_HHMMSS stamp from the file name as KST
// wall time, falling back to modTime.
func ResolveTimestamp(name string, modTime time.Time) time.Time {
	if m := filenameStamp.FindStringSubmatch(name); m != nil {
		v := make([]int, 6)
		for i := range v {
			v[i], _ = strconv.Atoi(m[i+1])
		}
		ts := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, shootdate.Location)
		// time.Date normalises overflow; reject stamps that do not round-trip.
		if ts.Year() == v[0] && int(ts.Month()) == v[1] && ts.Day() == v[2] &&
			ts.Hour() == v[3] && ts.Minute() == v[4] && ts.Second() == v[5] {
			return ts
		}
	}
	return modTime.In(shootdate.Location)
}

// Scan lists the intake files directly inside dir with resolved timestamps.
// Files that cannot be stat'ed are skipped.
func Scan(dir string) ([]File, error) {
	paths, err := photos.ListDir(dir, false)
	if err != nil {
		return nil, err
	}
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, File{Path: path, Timestamp: ResolveTimestamp(info.Name(), info.ModTime())})
	}
	return files, nil
}
