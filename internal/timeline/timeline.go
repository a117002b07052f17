// Package timeline implements the named [begin, begin+duration) window
// over a segment.Archive, and the Slice machinery built on top of it.
package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/loghaan/cablewatch/internal/segment"
)

// ErrNotFound is returned when a named timeline does not exist, or
// LookupSegmentFromTimestamp finds no covering segment.
var ErrNotFound = errors.New("timeline: not found")

// ErrInvalidName is returned by Open, Rename and Copy when a name fails
// the timeline name grammar.
var ErrInvalidName = errors.New("timeline: invalid name")

// ErrProtectedName is returned when a mutating operation targets Glob.
var ErrProtectedName = errors.New("timeline: name is protected")

// Glob is the reserved name denoting the whole archive. It is never
// persisted and cannot be mutated or deleted.
const Glob = "glob"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName reports ErrInvalidName if name doesn't match the grammar.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Timeline is a named, persisted window over a segment.Archive.
type Timeline struct {
	Name     string
	Begin    time.Time
	Duration time.Duration

	archive  segment.Archive
	dir      string // the "timelines" directory holding <name>.json
	segments []segment.Segment
}

// JSONPath returns the path Save/Remove operate on.
func (t *Timeline) JSONPath() string {
	return jsonPath(t.dir, t.Name)
}

// End returns Begin + Duration.
func (t *Timeline) End() time.Time {
	return t.Begin.Add(t.Duration)
}

// Segments returns the ordered, filtered-and-trimmed segments retained by
// the window.
func (t *Timeline) Segments() []segment.Segment {
	out := make([]segment.Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

type jsonDoc struct {
	Begin    time.Time `json:"begin"`
	Duration float64   `json:"duration"`
}

func jsonPath(timelinesDir, name string) string {
	return filepath.Join(timelinesDir, name+".json")
}

// Open loads or constructs the Timeline named name over arch, reading
// timelinesDir/<name>.json when load is true. Open never writes; call
// Save to persist.
//
// If begin/duration are nil and no persisted file is loaded, begin
// defaults to the first archived segment's begin (or today 00:00 if the
// archive is empty) and duration to the archive's span (or 0).
func Open(arch segment.Archive, timelinesDir, name string, begin *time.Time, duration *time.Duration, load bool) (*Timeline, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	all, err := arch.List()
	if err != nil {
		return nil, err
	}

	var resolvedBegin time.Time
	var resolvedDuration time.Duration

	if len(all) > 0 {
		resolvedBegin = all[0].Begin
		last := all[len(all)-1]
		resolvedDuration = last.Begin.Add(last.Duration).Sub(all[0].Begin)
	} else {
		now := time.Now()
		resolvedBegin = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		resolvedDuration = 0
	}
	if begin != nil {
		resolvedBegin = *begin
	}
	if duration != nil {
		resolvedDuration = *duration
	}

	if load && name != Glob {
		doc, err := loadJSON(timelinesDir, name)
		if err == nil {
			resolvedBegin = doc.Begin
			resolvedDuration = time.Duration(doc.Duration * float64(time.Second))
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	tl := &Timeline{
		Name:     name,
		Begin:    resolvedBegin,
		Duration: resolvedDuration,
		archive:  arch,
		dir:      timelinesDir,
	}
	tl.segments = filterAndTrim(all, resolvedBegin, resolvedDuration)
	return tl, nil
}

// filterAndTrim retains segments intersecting [begin, begin+duration),
// trimming the Inpoint of the first retained segment and the Outpoint of
// the last; interior segments carry neither trim.
func filterAndTrim(all []segment.Segment, begin time.Time, duration time.Duration) []segment.Segment {
	end := begin.Add(duration)

	var kept []segment.Segment
	for _, s := range all {
		if s.End().Before(begin) || s.End().Equal(begin) {
			continue
		}
		if !s.Begin.Before(end) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return kept
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Begin.Before(kept[j].Begin) })

	if kept[0].Begin.Before(begin) {
		in := begin.Sub(kept[0].Begin)
		kept[0].Inpoint = &in
	}
	last := &kept[len(kept)-1]
	segEnd := last.Begin.Add(last.Duration)
	if segEnd.After(end) {
		out := last.Duration - segEnd.Sub(end)
		last.Outpoint = &out
	}
	return kept
}

func loadJSON(timelinesDir, name string) (jsonDoc, error) {
	data, err := readFile(jsonPath(timelinesDir, name))
	if err != nil {
		return jsonDoc{}, ErrNotFound
	}
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return jsonDoc{}, fmt.Errorf("timeline: parse %s: %w", name, err)
	}
	return doc, nil
}

// Save persists the timeline's (begin, duration) as JSON, atomically.
// Rejects Glob.
func (t *Timeline) Save() error {
	if t.Name == Glob {
		return fmt.Errorf("%w: %q cannot be saved", ErrProtectedName, Glob)
	}
	doc := jsonDoc{Begin: t.Begin, Duration: t.Duration.Seconds()}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(jsonPath(t.dir, t.Name))
	if err != nil {
		return fmt.Errorf("timeline: create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("timeline: write: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("timeline: atomic replace: %w", err)
	}
	return nil
}

// Remove deletes the persisted JSON file. Rejects Glob. Never touches
// segments.
func (t *Timeline) Remove() error {
	if t.Name == Glob {
		return fmt.Errorf("%w: %q cannot be removed", ErrProtectedName, Glob)
	}
	return removeFile(jsonPath(t.dir, t.Name))
}

// Advance slides Begin by Duration-truncate, preserving Duration.
func (t *Timeline) Advance(truncate time.Duration) error {
	newBegin := t.Begin.Add(t.Duration - truncate)
	newDuration := t.Duration
	return t.reopen(&newBegin, &newDuration)
}

// Reset recomputes the window from the current archive bounds while
// preserving Duration.
func (t *Timeline) Reset() error {
	newDuration := t.Duration
	return t.reopen(nil, &newDuration)
}

// Rename rewrites the timeline under a new name (in memory only — call
// Save to persist). Rejects names in {Glob}.
func (t *Timeline) Rename(newName string) error {
	if newName == Glob {
		return fmt.Errorf("%w: %q is reserved", ErrProtectedName, Glob)
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	begin, duration := t.Begin, t.Duration
	next, err := Open(t.archive, t.dir, newName, &begin, &duration, false)
	if err != nil {
		return err
	}
	*t = *next
	return nil
}

// Copy returns a new Timeline named dst with the current window, without
// touching src (in memory only — call Save on the result to persist).
func (t *Timeline) Copy(dst string) (*Timeline, error) {
	if dst == Glob {
		return nil, fmt.Errorf("%w: %q is reserved", ErrProtectedName, Glob)
	}
	begin, duration := t.Begin, t.Duration
	return Open(t.archive, t.dir, dst, &begin, &duration, false)
}

func (t *Timeline) reopen(begin *time.Time, duration *time.Duration) error {
	next, err := Open(t.archive, t.dir, t.Name, begin, duration, false)
	if err != nil {
		return err
	}
	*t = *next
	return nil
}

// LookupSegmentFromTimestamp linearly scans retained segments and returns
// the unique one whose [Begin, End] contains ts.
func (t *Timeline) LookupSegmentFromTimestamp(ts time.Time) (segment.Segment, error) {
	for _, s := range t.segments {
		if !ts.Before(s.Begin) && !ts.After(s.End()) {
			return s, nil
		}
	}
	return segment.Segment{}, fmt.Errorf("%w: no segment covers %s", ErrNotFound, ts)
}

// NumberOfHoles counts retained segments with Hole=true.
func (t *Timeline) NumberOfHoles() int {
	n := 0
	for _, s := range t.segments {
		if s.Hole {
			n++
		}
	}
	return n
}

// ListNames returns every persisted timeline name under timelinesDir.
func ListNames(timelinesDir string) ([]string, error) {
	return listJSONNames(timelinesDir)
}
