//go:build !linux

package proctree

import (
	"os"
	"os/exec"
	"time"

	"github.com/loghaan/cablewatch/internal/log"
)

// setpgid is a no-op outside Linux: neither Windows nor the Darwin/BSD
// fallback path below groups by PGID, so there is nothing to configure
// before Start.
func setpgid(cmd *exec.Cmd) {}

// killTree only reaches the root process; without a process-group
// kill, a fetcher/segmenter stage that forked helpers of its own may
// leave them running. Acceptable for this fallback path since the
// pipeline stages cablewatch launches (yt-dlp, ffmpeg) don't fork
// long-lived children on Darwin/Windows in practice.
func killTree(pid int, grace, timeout time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	logger := log.WithComponent("proctree")

	logger.Debug().Int("pid", pid).Msg("sending interrupt to root process (non-linux fallback)")
	termErr := proc.Signal(os.Interrupt)
	recordSignal("SIGTERM", termErr, false)

	done := make(chan error, 1)
	go func() {
		_, err := proc.Wait()
		done <- err
	}()

	select {
	case err := <-done:
		recordWait(err, false)
		return nil
	case <-time.After(grace):
	}

	logger.Warn().Int("pid", pid).Msg("grace period exceeded, killing root process (non-linux fallback)")
	killErr := proc.Kill()
	recordSignal("SIGKILL", killErr, false)

	select {
	case err := <-done:
		recordWait(err, true)
		return nil
	case <-time.After(timeout):
		return ErrKillTimeout
	}
}
