// Package proctree tears down a capture pipeline's process tree: the
// yt-dlp fetcher piped into the ffmpeg segmenter, plus anything either
// one forked along the way. Both stages are started as process group
// leaders via Set, which lets KillTree reap the whole group instead of
// just the one PID Go's exec package knows about.
package proctree

import (
	"errors"
	"os/exec"
	"time"

	"github.com/loghaan/cablewatch/internal/metrics"
)

var (
	// ErrGroupNotFound names the "process group already gone" case.
	// KillTree does not return it: it reports an already-exited group
	// as nil.
	ErrGroupNotFound = errors.New("proctree: process group not found")

	// ErrKillTimeout is returned when a group survives past timeout
	// even after SIGKILL.
	ErrKillTimeout = errors.New("proctree: group did not exit before timeout")
)

// Set configures cmd to start as its own process group leader. Every
// fetcher/segmenter stage the Supervisor launches must call this before
// Start, or KillTree will only ever see the one PID.
func Set(cmd *exec.Cmd) {
	setpgid(cmd)
}

// KillTree sends SIGTERM to pid's process group, waits up to grace for
// it to exit, and escalates to SIGKILL if it hasn't. timeout bounds the
// total wait after the SIGKILL; exceeding it returns ErrKillTimeout.
// KillTree is a no-op (returns nil) if the group is already gone.
func KillTree(pid int, grace, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	return killTree(pid, grace, timeout)
}

// recordSignal reports a signal-delivery outcome for the
// cablewatch_proc_terminate_total metric, classifying "group already
// gone" errors (ESRCH from the Linux group kill) separately from a hard
// failure to deliver the signal. The non-Linux fallback always passes
// alreadyGone=false, so there every signal error counts as "error".
func recordSignal(signal string, err error, alreadyGone bool) {
	switch {
	case err == nil:
		metrics.IncProcTerminate(signal, "sent")
	case alreadyGone:
		metrics.IncProcTerminate(signal, "esrch")
	default:
		metrics.IncProcTerminate(signal, "error")
	}
}

// recordWait reports how waiting for the group's exit resolved, for
// the cablewatch_proc_wait_total metric. forced distinguishes a wait
// that only completed after the SIGKILL escalation.
func recordWait(err error, forced bool) {
	outcome := "exit0"
	if err != nil {
		outcome = "exit_nonzero"
	}
	if forced {
		outcome = "forced_" + outcome
	}
	metrics.IncProcWait(outcome)
}
