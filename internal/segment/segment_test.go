package segment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	begin := time.Date(2025, 12, 26, 14, 11, 48, 0, time.Local)
	basename := Format(begin, 30*time.Second)
	assert.Equal(t, "segment_2025-12-26T14h11m48_30.00s.ts", basename)

	seg, err := Parse(filepath.Join("/data", basename))
	require.NoError(t, err)
	assert.Equal(t, Format(seg.Begin, seg.Duration), seg.Basename)
	assert.Equal(t, 30*time.Second, seg.Duration)
	assert.False(t, seg.Hole)
}

func TestParseHoleSuffix(t *testing.T) {
	seg, err := Parse("/data/segment_2025-12-26T14h11m48_30.00s.ts.hole")
	require.NoError(t, err)
	assert.True(t, seg.Hole)
	assert.Equal(t, "segment_2025-12-26T14h11m48_30.00s.ts", seg.Basename)
	assert.Equal(t, "/data/segment_2025-12-26T14h11m48_30.00s.ts", seg.Filename)
}

func TestParseMalformedName(t *testing.T) {
	_, err := Parse("/data/not-a-segment.ts")
	assert.ErrorIs(t, err, ErrMalformedName)
}

func TestEffectiveDuration(t *testing.T) {
	in := 5 * time.Second
	out := 25 * time.Second
	seg := Segment{Duration: 30 * time.Second, Inpoint: &in, Outpoint: &out}
	assert.Equal(t, 20*time.Second, seg.EffectiveDuration())

	bare := Segment{Duration: 30 * time.Second}
	assert.Equal(t, 30*time.Second, bare.EffectiveDuration())
}

func TestArchiveListOrdersAndAppliesHole(t *testing.T) {
	dir := t.TempDir()
	b1 := time.Date(2025, 12, 26, 14, 11, 48, 0, time.Local)
	b2 := b1.Add(30 * time.Second)

	writeFile(t, dir, Format(b1, 30*time.Second))
	writeFile(t, dir, Format(b1, 30*time.Second)+".hole")
	writeFile(t, dir, Format(b2, 30*time.Second))

	arch := New(dir)
	segs, err := arch.List()
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.True(t, segs[0].Hole)
	assert.False(t, segs[1].Hole)
	assert.True(t, segs[0].Begin.Before(segs[1].Begin))
}

func TestArchiveListSkipsUnparsable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "segment_garbage.ts")
	b1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	writeFile(t, dir, Format(b1, 30*time.Second))

	segs, err := New(dir).List()
	require.NoError(t, err)
	require.Len(t, segs, 1)
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}
