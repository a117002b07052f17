package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loghaan/cablewatch/internal/segment"
)

// Slice is a contiguous run of segments with no hole between consecutive
// entries. Only the first Segment may carry an Inpoint and only the last
// may carry an Outpoint; interior segments carry neither.
type Slice struct {
	Segments []segment.Segment
}

// Begin is the first segment's Begin.
func (s Slice) Begin() time.Time {
	return s.Segments[0].Begin
}

// End is the last segment's End.
func (s Slice) End() time.Time {
	return s.Segments[len(s.Segments)-1].End()
}

// EffectiveDuration sums each segment's EffectiveDuration.
func (s Slice) EffectiveDuration() time.Duration {
	var total time.Duration
	for _, seg := range s.Segments {
		total += seg.EffectiveDuration()
	}
	return total
}

// Slices splits a timeline's retained segments into contiguous runs,
// breaking after any segment marked Hole=true (a hole always ends the
// slice it's attached to — the gap follows it) and before any segment
// that is not adjacent to its predecessor's End.
func Slices(segments []segment.Segment) []Slice {
	var out []Slice
	var current []segment.Segment

	flush := func() {
		if len(current) > 0 {
			out = append(out, Slice{Segments: current})
			current = nil
		}
	}

	for i, seg := range segments {
		if i > 0 {
			prev := segments[i-1]
			if !seg.Begin.Equal(prev.End()) || prev.Hole {
				flush()
			}
		}
		current = append(current, seg)
	}
	flush()
	return out
}

// ConcatManifest writes an ffmpeg concat-demuxer manifest for the slice
// to a fresh temp file under dir (typically "tmp/" beneath the archive
// directory, see AbsManifestDir) and returns its path. The manifest is consumed immediately by an
// external ffmpeg invocation, so a plain temp file is used rather than
// renameio's atomic-replace machinery, which exists for state other
// processes might observe mid-write.
//
// When withTrims is true, inpoint/outpoint directives are emitted for
// the first/last segment's trim points; when false those same lines are
// still emitted but commented out, so whole segments are concatenated
// untrimmed while the manifest still documents the slice's trim points.
func ConcatManifest(dir string, s Slice, withTrims bool) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.concat")
	if err != nil {
		return "", fmt.Errorf("timeline: create concat manifest: %w", err)
	}
	defer f.Close()

	for i, seg := range s.Segments {
		path := seg.Filename
		if seg.Hole {
			// Filename never carries the ".hole" suffix (Parse strips
			// it), so a hole-marked segment's media file is listed as-is.
			path = seg.Filename
		}
		fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(path))

		// When withTrims is false the inpoint/outpoint lines are still
		// emitted, just commented out, so the manifest documents the
		// slice's trim points even when ffmpeg is told to ignore them.
		prefix := ""
		if !withTrims {
			prefix = "# "
		}
		if i == 0 && seg.Inpoint != nil {
			fmt.Fprintf(f, "%sinpoint %s\n", prefix, formatSeconds(*seg.Inpoint))
		}
		if i == len(s.Segments)-1 && seg.Outpoint != nil {
			fmt.Fprintf(f, "%soutpoint %s\n", prefix, formatSeconds(*seg.Outpoint))
		}
	}

	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("timeline: sync concat manifest: %w", err)
	}
	return f.Name(), nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// escapeConcatPath escapes single quotes per the ffmpeg concat demuxer's
// quoting rules: a literal quote is written as '\''.
func escapeConcatPath(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '\'' {
			out = append(out, '\'', '\\', '\'', '\'')
			continue
		}
		out = append(out, path[i])
	}
	return string(out)
}

// AbsManifestDir returns the "tmp" directory beneath base, creating it if
// absent.
func AbsManifestDir(base string) (string, error) {
	dir := filepath.Join(base, "tmp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
