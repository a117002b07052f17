package timeline

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/loghaan/cablewatch/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(begin time.Time, dur time.Duration, hole bool, in, out *time.Duration) segment.Segment {
	return segment.Segment{
		Filename: "/data/" + segment.Format(begin, dur),
		Basename: segment.Format(begin, dur),
		Begin:    begin,
		Duration: dur,
		Hole:     hole,
		Inpoint:  in,
		Outpoint: out,
	}
}

func TestSlicesBreaksAtHoleAndGap(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	s1 := seg(base, 30*time.Second, true, nil, nil)
	s2 := seg(base.Add(30*time.Second), 30*time.Second, false, nil, nil)
	s3 := seg(base.Add(90*time.Second), 30*time.Second, false, nil, nil) // gap: not adjacent to s2's End

	slices := Slices([]segment.Segment{s1, s2, s3})
	require.Len(t, slices, 3)
	assert.Len(t, slices[0].Segments, 1)
	assert.Len(t, slices[1].Segments, 1)
	assert.Len(t, slices[2].Segments, 1)
}

func TestSlicesEffectiveDurationWithTrims(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	in := 5 * time.Second
	out := 25 * time.Second
	s1 := seg(base, 30*time.Second, false, &in, nil) // effective 25s
	s2 := seg(base.Add(30*time.Second), 30*time.Second, false, nil, nil)
	s3 := seg(base.Add(60*time.Second), 30*time.Second, false, nil, &out) // effective 25s

	sl := Slice{Segments: []segment.Segment{s1, s2, s3}}
	assert.Equal(t, 80*time.Second, sl.EffectiveDuration())
}

func TestConcatManifestWithTrims(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	in := 5 * time.Second
	out := 25 * time.Second
	s1 := seg(base, 30*time.Second, false, &in, nil)
	s2 := seg(base.Add(30*time.Second), 30*time.Second, false, nil, &out)

	sl := Slice{Segments: []segment.Segment{s1, s2}}
	path, err := ConcatManifest(dir, sl, true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "inpoint 5.000"))
	assert.True(t, strings.Contains(content, "outpoint 25.000"))
	assert.Equal(t, 4, strings.Count(content, "\n"))
}

func TestConcatManifestWithoutTrims(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	in := 5 * time.Second
	s1 := seg(base, 30*time.Second, false, &in, nil)

	sl := Slice{Segments: []segment.Segment{s1}}
	path, err := ConcatManifest(dir, sl, false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "# inpoint 5.000"))
}

func TestEscapeConcatPath(t *testing.T) {
	assert.Equal(t, `/data/it'\''s.ts`, escapeConcatPath(`/data/it's.ts`))
}

// TestSlicesPreservesSegmentOrderAndContent diffs the full Slice tree
// rather than spot-checking lengths, since a grouping bug is more likely
// to reorder or duplicate a Segment than to change its count.
func TestSlicesPreservesSegmentOrderAndContent(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	s1 := seg(base, 30*time.Second, false, nil, nil)
	s2 := seg(base.Add(30*time.Second), 30*time.Second, true, nil, nil)
	s3 := seg(base.Add(60*time.Second), 30*time.Second, false, nil, nil)

	got := Slices([]segment.Segment{s1, s2, s3})
	want := []Slice{
		{Segments: []segment.Segment{s1, s2}},
		{Segments: []segment.Segment{s3}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Slices() mismatch (-want +got):\n%s", diff)
	}
}
