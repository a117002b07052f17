// Package segment models a single on-disk capture file and the archive
// directory that holds them.
package segment

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// ErrMalformedName is returned when a filename does not match the fixed
// segment grammar: segment_<ISO-local>_<duration>s.ts(.hole)?
var ErrMalformedName = errors.New("segment: malformed filename")

// DatetimeLayout is the ISO-local layout embedded in segment filenames:
// no timezone suffix, interpreted in the host local zone.
const DatetimeLayout = "2006-01-02T15h04m05"

var namePattern = regexp.MustCompile(`^segment_(.+)_(.+)s\.ts(\.hole)?$`)

// Segment is a value object for one on-disk capture file.
type Segment struct {
	Filename string // absolute path, without a trailing ".hole"
	Basename string

	Begin    time.Time
	Duration time.Duration

	// Inpoint/Outpoint are fractional-second trim points measured from
	// Begin. nil means "no trim at this end".
	Inpoint  *time.Duration
	Outpoint *time.Duration

	// Hole reports whether a capture gap follows this segment (an empty
	// "<basename>.hole" sibling file exists).
	Hole bool
}

// End returns Begin + Duration.
func (s Segment) End() time.Time {
	return s.Begin.Add(s.Duration)
}

// EffectiveDuration is (Outpoint ?? Duration) - (Inpoint ?? 0).
func (s Segment) EffectiveDuration() time.Duration {
	in := time.Duration(0)
	if s.Inpoint != nil {
		in = *s.Inpoint
	}
	out := s.Duration
	if s.Outpoint != nil {
		out = *s.Outpoint
	}
	return out - in
}

// Format renders the canonical basename for a segment with the given
// begin/duration, ignoring any trim points and the hole marker — the
// inverse of Parse's (begin, duration) extraction.
func Format(begin time.Time, duration time.Duration) string {
	return fmt.Sprintf("segment_%s_%.2fs.ts", begin.Format(DatetimeLayout), duration.Seconds())
}

// Parse extracts a Segment from an absolute filename. It fails with
// ErrMalformedName if the basename does not match the grammar.
func Parse(filename string) (Segment, error) {
	basename := filepath.Base(filename)
	m := namePattern.FindStringSubmatch(basename)
	if m == nil {
		return Segment{}, fmt.Errorf("%w: %q", ErrMalformedName, basename)
	}

	begin, err := time.ParseInLocation(DatetimeLayout, m[1], time.Local)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: %q: %v", ErrMalformedName, basename, err)
	}
	durationSeconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: %q: %v", ErrMalformedName, basename, err)
	}

	hole := m[3] != ""
	if hole {
		basename = basename[:len(basename)-len(m[3])]
		filename = filename[:len(filename)-len(m[3])]
	}

	return Segment{
		Filename: filename,
		Basename: basename,
		Begin:    begin,
		Duration: durationToDuration(durationSeconds),
		Hole:     hole,
	}, nil
}

func durationToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
