package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:30
#EXT-X-MEDIA-SEQUENCE:42
#EXT-X-PROGRAM-DATE-TIME:2025-12-26T14:11:48.123Z
#EXTINF:30.00,
segment_2025-12-26T14h11m48.ts
`

func TestParsePlaylistEventSuccess(t *testing.T) {
	ev, err := ParsePlaylistEvent(samplePlaylist)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ev.Duration)
	assert.Equal(t, "segment_2025-12-26T14h11m48.ts", ev.SegmentURI)
	assert.False(t, ev.ProgramDateTime.IsZero())
}

func TestParsePlaylistEventMissingFields(t *testing.T) {
	_, err := ParsePlaylistEvent("#EXTM3U\n#EXTINF:30.00,\n")
	assert.ErrorIs(t, err, ErrMalformedPlaylist)
}

func TestParsePlaylistEventEmpty(t *testing.T) {
	_, err := ParsePlaylistEvent("")
	assert.ErrorIs(t, err, ErrMalformedPlaylist)
}
