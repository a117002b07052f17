package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/loghaan/cablewatch/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRecorder(t *testing.T, archiveDir string) (*Recorder, *[]error) {
	t.Helper()
	yamlPath := filepath.Join(t.TempDir(), "cablewatch.yaml")
	content := fmt.Sprintf("INGEST_DATADIR: %q\nINGEST_YOUTUBE_STREAM_URL: \"https://example.invalid/live\"\n", archiveDir)
	require.NoError(t, os.WriteFile(yamlPath, []byte(content), 0o644))

	cfg, err := config.Load(yamlPath)
	require.NoError(t, err)

	var aborts []error
	r, err := New(cfg, func(e error) { aborts = append(aborts, e) }, nil)
	require.NoError(t, err)
	return r, &aborts
}

func TestProcessPlaylistRenamesIntoArchiveGrammar(t *testing.T) {
	archiveDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(archiveDir, "tmp"), 0o755))
	r, _ := newTestRecorder(t, archiveDir)

	tempSegment := filepath.Join(archiveDir, "tmp", "segment_raw.ts")
	require.NoError(t, os.WriteFile(tempSegment, []byte("data"), 0o644))
	r.mu.Lock()
	r.currentSegmentFilename = tempSegment
	r.mu.Unlock()

	playlistPath := filepath.Join(archiveDir, "tmp", "live.m3u8")
	require.NoError(t, os.WriteFile(playlistPath, []byte(samplePlaylist), 0o644))

	require.NoError(t, r.processPlaylist(playlistPath))

	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	var archived bool
	for _, e := range entries {
		if e.Name() == "segment_2025-12-26T14h11m48_30.00s.ts" {
			archived = true
		}
	}
	assert.True(t, archived, "expected renamed segment in archive dir")

	r.mu.Lock()
	pending := r.holeMarkerPending
	r.mu.Unlock()
	assert.Equal(t, filepath.Join(archiveDir, "segment_2025-12-26T14h11m48_30.00s.ts")+".hole", pending)
}

func TestProcessPlaylistNoTempSegmentErrors(t *testing.T) {
	archiveDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(archiveDir, "tmp"), 0o755))
	r, _ := newTestRecorder(t, archiveDir)

	playlistPath := filepath.Join(archiveDir, "tmp", "live.m3u8")
	require.NoError(t, os.WriteFile(playlistPath, []byte(samplePlaylist), 0o644))

	err := r.processPlaylist(playlistPath)
	assert.ErrorIs(t, err, ErrMalformedPlaylist)
}

func TestOnChildExitWritesHoleMarkerAndCountsFailure(t *testing.T) {
	archiveDir := t.TempDir()
	r, _ := newTestRecorder(t, archiveDir)

	markerPath := filepath.Join(archiveDir, "segment_x_30.00s.ts.hole")
	r.mu.Lock()
	r.holeMarkerPending = markerPath
	r.mu.Unlock()

	r.onChildExit(fmt.Errorf("exit status 1"), false)

	_, err := os.Stat(markerPath)
	assert.NoError(t, err)

	r.mu.Lock()
	failed := r.numberOfFailedRecords
	r.mu.Unlock()
	assert.Equal(t, 1, failed)
}

func TestOnChildExitOperatorHaltDoesNotCountFailure(t *testing.T) {
	archiveDir := t.TempDir()
	r, _ := newTestRecorder(t, archiveDir)

	r.onChildExit(nil, true)

	r.mu.Lock()
	failed := r.numberOfFailedRecords
	r.mu.Unlock()
	assert.Equal(t, 0, failed)
}

func TestCleanupTempFolderRemovesStaleFiles(t *testing.T) {
	archiveDir := t.TempDir()
	tmpDir := filepath.Join(archiveDir, "tmp")
	require.NoError(t, os.MkdirAll(tmpDir, 0o755))
	r, _ := newTestRecorder(t, archiveDir)

	stale := filepath.Join(tmpDir, "old.ts")
	fresh := filepath.Join(tmpDir, "new.concat")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))
	require.NoError(t, os.WriteFile(fresh, nil, 0o644))
	oldTime := time.Now().Add(-20 * time.Minute)
	require.NoError(t, os.Chtimes(stale, oldTime, oldTime))

	r.cleanupTempFolder()

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestCheckFatalAtStartupTripsOnHighFailureRatio(t *testing.T) {
	archiveDir := t.TempDir()
	r, aborts := newTestRecorder(t, archiveDir)

	r.mu.Lock()
	r.serviceStartTime = time.Now().Add(-6 * time.Second)
	r.numberOfFailedRecords = 5
	r.mu.Unlock()

	r.checkFatalAtStartup()

	assert.Len(t, *aborts, 1)
	assert.ErrorIs(t, (*aborts)[0], ErrStartupFlap)
	assert.Equal(t, StateFlapAborted, r.Snapshot().State)
}

func TestCheckFatalAtStartupIgnoresOutsideWindow(t *testing.T) {
	archiveDir := t.TempDir()
	r, aborts := newTestRecorder(t, archiveDir)

	r.mu.Lock()
	r.serviceStartTime = time.Now().Add(-2 * time.Second)
	r.numberOfFailedRecords = 5
	r.mu.Unlock()

	r.checkFatalAtStartup()
	assert.Len(t, *aborts, 0)
}

func TestSnapshotReflectsRequestedState(t *testing.T) {
	archiveDir := t.TempDir()
	r, _ := newTestRecorder(t, archiveDir)

	r.RequestRecording()
	assert.True(t, r.Snapshot().RecordingRequested)

	r.RequestHalt()
	assert.False(t, r.Snapshot().RecordingRequested)
}
