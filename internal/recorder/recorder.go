// Package recorder supervises the yt-dlp|ffmpeg capture pipeline and
// archives finished HLS segments under a fixed filename grammar.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/loghaan/cablewatch/internal/config"
	"github.com/loghaan/cablewatch/internal/log"
	"github.com/loghaan/cablewatch/internal/metrics"
	"github.com/loghaan/cablewatch/internal/segment"
)

// ErrStartupFlap is returned (and passed to the abort sink) when the
// crash-loop guard in checkFatalAtStartup trips.
var ErrStartupFlap = errors.New("recorder: startup flap detected, aborting")

// haltPollInterval is how often the supervision loop checks the
// recording-requested flag while idle.
const haltPollInterval = 300 * time.Millisecond

// haltPollLogEvery bounds how often the idle-wait logs, to avoid
// spamming at haltPollInterval cadence.
const haltPollLogEvery = 30 * time.Second

// cleanupEveryNLines governs how often processLine triggers
// cleanupTempFolder — matching the original's "every ~100 lines".
const cleanupEveryNLines = 100

// tempFileMaxAge is how stale a tmp/*.ts or *.concat file must be before
// cleanupTempFolder removes it.
const tempFileMaxAge = 10 * time.Minute

// AbortSink is invoked when checkFatalAtStartup trips and no recovery
// is possible within the process. Absent a sink, Recorder exits the
// process with status -1, matching the original's behavior as the only
// unrecoverable failure the core exposes.
type AbortSink func(error)

// StatusSink receives a Status snapshot on every state change, driving
// the control-plane broadcast.
type StatusSink func(Status)

// Recorder is the single-instance capture state machine described in
// spec.md §4.5.
type Recorder struct {
	cfg        *config.Config
	archiveDir string
	tmpDir     string
	abort      AbortSink
	onStatus   StatusSink

	mu                      sync.Mutex
	state                   State
	recordingRequested      bool
	serviceStartTime        time.Time
	recordStartTime         time.Time
	haltStartTime           time.Time
	currentSegmentFilename  string
	currentPID              int
	holeMarkerPending       string
	numberOfLaunchedRecords int
	numberOfFailedRecords   int
	drift                   driftRing

	cancelSupervision context.CancelFunc
	supervisionDone   chan struct{}

	linesSinceCleanup int
}

// New constructs an idle Recorder rooted at cfg's INGEST_DATADIR.
func New(cfg *config.Config, abort AbortSink, onStatus StatusSink) (*Recorder, error) {
	dataDir, err := cfg.Get("INGEST_DATADIR")
	if err != nil {
		return nil, err
	}
	if abort == nil {
		abort = func(err error) {
			log.WithComponent("recorder").Error().Err(err).Msg("fatal at startup, exiting")
			os.Exit(-1)
		}
	}
	return &Recorder{
		cfg:        cfg,
		archiveDir: dataDir,
		tmpDir:     filepath.Join(dataDir, "tmp"),
		abort:      abort,
		onStatus:   onStatus,
		state:      StateIdle,
	}, nil
}

// Start records service_start_time and launches the supervision loop.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	r.serviceStartTime = time.Now()
	ctx, cancel := context.WithCancel(ctx)
	r.cancelSupervision = cancel
	r.supervisionDone = make(chan struct{})
	r.mu.Unlock()

	go r.supervise(ctx)
}

// RequestRecording flips the recording-requested flag on, waking the
// supervision loop's idle poll.
func (r *Recorder) RequestRecording() {
	r.mu.Lock()
	r.recordingRequested = true
	r.mu.Unlock()
	r.publishStatus()
}

// RequestHalt flips the recording-requested flag off. The in-flight
// runCommand goroutine observes this and signals the supervised process
// tree; its exit is then passed to onChildExit as an operator halt, so
// it does not count as a failed record.
func (r *Recorder) RequestHalt() {
	r.mu.Lock()
	r.recordingRequested = false
	r.haltStartTime = time.Now()
	r.mu.Unlock()
	r.publishStatus()
}

// Stop requests a halt, gives the supervision loop a moment to observe
// it, then cancels and joins.
func (r *Recorder) Stop(ctx context.Context) {
	r.RequestHalt()
	r.mu.Lock()
	r.state = StateIdle
	cancel := r.cancelSupervision
	done := r.supervisionDone
	r.mu.Unlock()
	r.publishStatus()

	if cancel == nil {
		return
	}
	time.Sleep(500 * time.Millisecond)
	cancel()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}

func (r *Recorder) supervise(ctx context.Context) {
	defer close(r.supervisionDone)
	logger := log.WithComponent("recorder")

	for {
		if ctx.Err() != nil {
			return
		}

		r.mu.Lock()
		wantRecording := r.recordingRequested
		r.mu.Unlock()

		if !wantRecording {
			r.mu.Lock()
			r.state = StateIdle
			r.mu.Unlock()

			lastLog := time.Now()
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(haltPollInterval):
				}
				r.mu.Lock()
				wantRecording = r.recordingRequested
				r.mu.Unlock()
				if wantRecording {
					break
				}
				if time.Since(lastLog) >= haltPollLogEvery {
					logger.Debug().Msg("idle, waiting for recording request")
					lastLog = time.Now()
				}
			}
			continue
		}

		r.mu.Lock()
		r.state = StateRecording
		r.mu.Unlock()
		r.publishStatus()

		if err := r.runCommand(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("capture cycle ended with error")
		}

		r.checkFatalAtStartup()
	}
}

// runCommand executes one full capture cycle: spawn the fetcher|segmenter
// pipeline, stream its output through processLine, and on exit account
// for failure and any pending hole marker.
func (r *Recorder) runCommand(ctx context.Context) error {
	r.mu.Lock()
	r.currentSegmentFilename = ""
	r.holeMarkerPending = ""
	r.recordStartTime = time.Now()
	operatorHaltAtStart := !r.recordingRequested
	r.mu.Unlock()

	if err := os.MkdirAll(r.archiveDir, 0o755); err != nil {
		return fmt.Errorf("recorder: ensure archive dir: %w", err)
	}
	if err := os.MkdirAll(r.tmpDir, 0o755); err != nil {
		return fmt.Errorf("recorder: ensure tmp dir: %w", err)
	}

	fetcherArgv, segmenterArgv, err := r.buildArgv()
	if err != nil {
		return err
	}

	sup, err := NewSupervisor(ctx, fetcherArgv, segmenterArgv, r.archiveDir)
	if err != nil {
		return err
	}
	defer sup.Close()

	metrics.RecordsLaunched.Inc()
	r.mu.Lock()
	r.numberOfLaunchedRecords++
	r.mu.Unlock()

	if err := sup.Start(); err != nil {
		r.onChildExit(err, false)
		return err
	}
	r.mu.Lock()
	r.currentPID = sup.SegmenterPID()
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.currentPID = 0
		r.mu.Unlock()
	}()

	lineErrCh := make(chan error, 1)
	go r.streamLines(sup.Output(), lineErrCh)

	var haltRequestedDuringRun bool
	select {
	case err := <-sup.Done():
		haltRequestedDuringRun = !r.isRecordingRequested()
		r.onChildExit(err, operatorHaltAtStart || haltRequestedDuringRun)
		return err
	case <-ctx.Done():
		_ = sup.Halt(5*time.Second, 10*time.Second)
		<-sup.Done()
		r.onChildExit(ctx.Err(), true)
		return ctx.Err()
	case <-r.haltRequested(ctx):
		_ = sup.Halt(5*time.Second, 10*time.Second)
		err := <-sup.Done()
		r.onChildExit(err, true)
		return err
	}
}

// haltRequested returns a channel that closes once recordingRequested
// goes false, polled at haltPollInterval.
func (r *Recorder) haltRequested(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(haltPollInterval):
			}
			if !r.isRecordingRequested() {
				return
			}
		}
	}()
	return ch
}

func (r *Recorder) isRecordingRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordingRequested
}

// onChildExit applies the hole-marker-on-exit and failure-accounting
// rules from spec.md §4.5. operatorHalt suppresses the failure increment
// per SPEC_FULL.md §4.5's resolution of the Open Question.
func (r *Recorder) onChildExit(childErr error, operatorHalt bool) {
	r.mu.Lock()
	pending := r.holeMarkerPending
	r.holeMarkerPending = ""
	r.mu.Unlock()

	if pending != "" {
		if err := os.WriteFile(pending, nil, 0o644); err != nil {
			log.WithComponent("recorder").Warn().Err(err).Str("marker", pending).Msg("failed to write hole marker")
		} else {
			metrics.HolesMarked.Inc()
		}
	}

	if !operatorHalt {
		r.mu.Lock()
		r.numberOfFailedRecords++
		r.mu.Unlock()
		metrics.RecordsFailed.Inc()
	}
	r.publishStatus()
}

func (r *Recorder) streamLines(rd io.Reader, done chan<- error) {
	dec := newLineDecoder(rd)
	for {
		line, err := dec.ReadLine()
		if err != nil {
			done <- nil
			return
		}
		r.processLine(line)
	}
}

// processLine dispatches a decoded line per spec.md §4.5.
func (r *Recorder) processLine(line string) {
	r.mu.Lock()
	r.linesSinceCleanup++
	due := r.linesSinceCleanup >= cleanupEveryNLines
	if due {
		r.linesSinceCleanup = 0
	}
	r.mu.Unlock()
	if due {
		r.cleanupTempFolder()
	}

	kind, payload := classifyLine(line)
	logger := log.WithComponent("recorder")
	switch kind {
	case lineProgramDateTime:
		parsed, err := time.Parse(time.RFC3339Nano, payload)
		if err != nil {
			logger.Warn().Err(err).Str("raw", payload).Msg("unparsable program-date-time")
			return
		}
		drift := time.Since(parsed)
		r.mu.Lock()
		r.drift.Push(drift)
		mean := r.drift.Mean()
		r.mu.Unlock()
		metrics.DriftSeconds.Set(mean.Seconds())
		logger.Debug().Dur("drift_mean", mean).Msg("rolling drift updated")
	case lineOpeningSegment:
		r.mu.Lock()
		r.currentSegmentFilename = payload
		r.mu.Unlock()
	case lineOpeningPlaylist:
		playlistPath := strings.TrimSuffix(payload, ".tmp")
		if err := r.processPlaylist(playlistPath); err != nil {
			if r.isRecordingRequested() {
				logger.Error().Err(err).Msg("fatal: malformed playlist while recording")
				r.abort(err)
			} else {
				logger.Debug().Err(err).Msg("tolerated malformed playlist during shutdown")
			}
		}
	}
}

// processPlaylist reads the finished playlist, corrects its timestamp by
// the rolling drift mean, renames the current temp segment into the
// archive grammar, and arms the hole marker for the next cycle.
func (r *Recorder) processPlaylist(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("recorder: read playlist %s: %w", path, err)
	}

	ev, err := ParsePlaylistEvent(string(data))
	if err != nil {
		return err
	}

	r.mu.Lock()
	mean := r.drift.Mean()
	tempSegment := r.currentSegmentFilename
	r.mu.Unlock()

	correctedBegin := ev.ProgramDateTime.Add(-mean)
	newName := segment.Format(correctedBegin, ev.Duration)
	newPath := filepath.Join(r.archiveDir, newName)

	if tempSegment == "" {
		return fmt.Errorf("%w: no pending temp segment for %s", ErrMalformedPlaylist, ev.SegmentURI)
	}
	if err := os.Rename(tempSegment, newPath); err != nil {
		return fmt.Errorf("recorder: archive rename: %w", err)
	}

	r.mu.Lock()
	r.holeMarkerPending = newPath + ".hole"
	r.currentSegmentFilename = ""
	r.mu.Unlock()
	return nil
}

// cleanupTempFolder removes stale *.ts/*.concat files under tmpDir. Safe
// to run concurrently with capture: the segmenter always writes fresh
// paths and renames them away within one segment period.
func (r *Recorder) cleanupTempFolder() {
	entries, err := os.ReadDir(r.tmpDir)
	if err != nil {
		return
	}
	now := time.Now()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".ts") && !strings.HasSuffix(name, ".concat") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > tempFileMaxAge {
			_ = os.Remove(filepath.Join(r.tmpDir, name))
		}
	}
}

// checkFatalAtStartup guards against a tight crash loop: within the
// StartupFlapWindow{Min,Max} seconds after service start, a failure
// ratio at or above StartupFlapRatio cancels the supervision loop and
// invokes the abort sink.
func (r *Recorder) checkFatalAtStartup() {
	r.mu.Lock()
	elapsed := time.Since(r.serviceStartTime).Seconds()
	failed := r.numberOfFailedRecords
	cancel := r.cancelSupervision
	r.mu.Unlock()

	if elapsed < r.cfg.StartupFlapWindowMin || elapsed > r.cfg.StartupFlapWindowMax {
		return
	}
	if float64(failed)/elapsed < r.cfg.StartupFlapRatio {
		return
	}

	r.mu.Lock()
	r.state = StateFlapAborted
	r.mu.Unlock()
	metrics.StartupFlapAborts.Inc()
	r.publishStatus()

	if cancel != nil {
		cancel()
	}
	r.abort(ErrStartupFlap)
}

func (r *Recorder) publishStatus() {
	if r.onStatus == nil {
		return
	}
	r.onStatus(r.Snapshot())
}

// buildArgv composes the fetcher (yt-dlp) and segmenter (ffmpeg) argv
// from configuration. The segmenter writes a sliding single-entry HLS
// playlist with program_date_time tags and one 30s .ts segment per
// cycle into archiveDir/tmp, to be renamed into the archive grammar by
// processPlaylist.
func (r *Recorder) buildArgv() (fetcherArgv, segmenterArgv []string, err error) {
	streamURL, err := r.cfg.Get("INGEST_YOUTUBE_STREAM_URL")
	if err != nil {
		return nil, nil, err
	}
	if streamURL == "" {
		return nil, nil, fmt.Errorf("recorder: INGEST_YOUTUBE_STREAM_URL not configured")
	}
	extraArgsRaw, err := r.cfg.Get("YT_DLP_EXTRA_ARGS")
	if err != nil {
		return nil, nil, err
	}

	fetcherArgv = []string{"yt-dlp", "-o", "-", "--quiet", "--no-part"}
	if extraArgsRaw != "" {
		fetcherArgv = append(fetcherArgv, strings.Fields(extraArgsRaw)...)
	}
	fetcherArgv = append(fetcherArgv, streamURL)

	playlistPath := filepath.Join(r.tmpDir, "live.m3u8")
	segmentPattern := filepath.Join(r.tmpDir, "segment_%Y-%m-%dT%Hh%Mm%Ss.ts")
	segmenterArgv = []string{
		"ffmpeg", "-hide_banner", "-loglevel", "info",
		"-i", "pipe:0",
		"-c", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(30),
		"-hls_list_size", "1",
		"-hls_flags", "program_date_time+second_level_segment_duration",
		"-strftime", "1",
		"-hls_segment_filename", segmentPattern,
		playlistPath,
	}
	return fetcherArgv, segmenterArgv, nil
}
