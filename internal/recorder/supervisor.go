package recorder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"github.com/loghaan/cablewatch/internal/proctree"
)

// Supervisor owns the two-stage child process tree (a stream fetcher
// piped into a segmenter) and exposes their merged stdout/stderr as a
// single io.Reader plus a channel that delivers their combined exit
// result once both have exited.
type Supervisor struct {
	fetcher   *exec.Cmd
	segmenter *exec.Cmd

	mergedR *os.File
	mergedW *os.File

	done chan error
}

// NewSupervisor builds, but does not start, the fetcher|segmenter
// pipeline. fetcherArgv and segmenterArgv are the full argv (program
// name included) for each stage; the segmenter reads the fetcher's
// stdout on its own stdin.
func NewSupervisor(ctx context.Context, fetcherArgv, segmenterArgv []string, dir string) (*Supervisor, error) {
	if len(fetcherArgv) == 0 || len(segmenterArgv) == 0 {
		return nil, fmt.Errorf("recorder: empty argv for supervised process")
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("recorder: create merged output pipe: %w", err)
	}

	fetcher := exec.CommandContext(ctx, fetcherArgv[0], fetcherArgv[1:]...)
	fetcher.Dir = dir
	fetcher.Stderr = pw
	proctree.Set(fetcher)

	segmenter := exec.CommandContext(ctx, segmenterArgv[0], segmenterArgv[1:]...)
	segmenter.Dir = dir
	segmenter.Stdout = pw
	segmenter.Stderr = pw
	proctree.Set(segmenter)

	fetcherOut, err := fetcher.StdoutPipe()
	if err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("recorder: attach fetcher stdout: %w", err)
	}
	segmenter.Stdin = fetcherOut

	return &Supervisor{
		fetcher:   fetcher,
		segmenter: segmenter,
		mergedR:   pr,
		mergedW:   pw,
		done:      make(chan error, 1),
	}, nil
}

// SegmenterPID returns the segmenter's PID once started, or 0.
func (s *Supervisor) SegmenterPID() int {
	if s.segmenter.Process == nil {
		return 0
	}
	return s.segmenter.Process.Pid
}

// Output returns the merged stdout/stderr stream for lineDecoder.
func (s *Supervisor) Output() io.Reader {
	return s.mergedR
}

// Start launches both stages and begins waiting for them in the
// background; Done() reports the combined result.
func (s *Supervisor) Start() error {
	if err := s.segmenter.Start(); err != nil {
		s.mergedW.Close()
		s.mergedR.Close()
		return fmt.Errorf("recorder: start segmenter: %w", err)
	}
	if err := s.fetcher.Start(); err != nil {
		_ = s.segmenter.Process.Kill()
		s.mergedW.Close()
		s.mergedR.Close()
		return fmt.Errorf("recorder: start fetcher: %w", err)
	}

	go func() {
		g := new(errgroup.Group)
		g.Go(s.fetcher.Wait)
		g.Go(s.segmenter.Wait)
		err := g.Wait()
		s.mergedW.Close()
		s.done <- err
	}()
	return nil
}

// Done reports the combined fetcher+segmenter exit, nil on clean exit.
func (s *Supervisor) Done() <-chan error {
	return s.done
}

// Halt sends SIGTERM to both process groups and every descendant of
// each, the Go counterpart of psutil.Process(pid).children(recursive=True)
// followed by a terminate-all loop. Each termination goes through
// proctree.KillTree, which waits up to grace after SIGTERM, escalates to
// SIGKILL, and waits up to timeout more; Halt returns once every
// KillTree call has returned. Done() still reports the combined exit.
func (s *Supervisor) Halt(grace, timeout time.Duration) error {
	var firstErr error
	for _, cmd := range []*exec.Cmd{s.fetcher, s.segmenter} {
		if cmd.Process == nil {
			continue
		}
		if err := terminateTree(cmd.Process.Pid, grace, timeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// terminateTree walks the full descendant tree of pid (via gopsutil,
// mirroring psutil's recursive children()) and asks proctree to
// terminate each, root-last so parents don't orphan children mid-kill.
func terminateTree(pid int, grace, timeout time.Duration) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		// Already gone: nothing to terminate.
		return nil
	}
	children, err := proc.Children()
	if err == nil {
		for _, child := range children {
			_ = terminateTree(int(child.Pid), grace, timeout)
		}
	}
	return proctree.KillTree(pid, grace, timeout)
}

// Close releases the merged pipe's read end; call after Done() fires.
func (s *Supervisor) Close() error {
	return s.mergedR.Close()
}
