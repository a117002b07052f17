//go:build linux

package proctree

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/loghaan/cablewatch/internal/log"
)

func setpgid(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killTree targets the negative PID (the process group, since setpgid
// made pid its own leader) so a single syscall reaches the fetcher or
// segmenter and every child it forked.
func killTree(pid int, grace, timeout time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	logger := log.WithComponent("proctree")

	logger.Debug().Int("pid", pid).Msg("sending SIGTERM to process group")
	termErr := syscall.Kill(-pid, syscall.SIGTERM)
	termGone := termErr == syscall.ESRCH
	recordSignal("SIGTERM", termErr, termGone)
	if termErr != nil && !termGone {
		_ = proc.Signal(syscall.SIGTERM)
	}
	if termGone {
		return nil
	}

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

	logger.Warn().Int("pid", pid).Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	killErr := syscall.Kill(-pid, syscall.SIGKILL)
	killGone := killErr == syscall.ESRCH
	recordSignal("SIGKILL", killErr, killGone)
	if killErr != nil && !killGone {
		_ = proc.Kill()
	}

	select {
	case err := <-done:
		recordWait(err, true)
		return nil
	case <-time.After(timeout):
		return ErrKillTimeout
	}
}
