// Package scheduler drives the Recorder's record/halt triggers on a
// fixed daily cron, in the configured local timezone.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loghaan/cablewatch/internal/log"
)

// DefaultRecordSchedule fires requestRecording() at 06:25 local.
const DefaultRecordSchedule = "0 25 6 * * *"

// DefaultHaltSchedule fires requestHalt() at 00:05 local.
const DefaultHaltSchedule = "0 5 0 * * *"

// RecordingController is the subset of *recorder.Recorder the scheduler
// depends on.
type RecordingController interface {
	RequestRecording()
	RequestHalt()
}

// Scheduler wraps a robfig/cron instance configured with the six-field
// parser (seconds included) and panic recovery, so a misbehaving trigger
// callback logs and moves on rather than taking the process down.
type Scheduler struct {
	cron *cron.Cron
}

// New builds a Scheduler in loc, registering the default record/halt
// triggers against controller. Pass an empty recordSchedule/haltSchedule
// to use the defaults.
func New(controller RecordingController, loc *time.Location, recordSchedule, haltSchedule string) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if recordSchedule == "" {
		recordSchedule = DefaultRecordSchedule
	}
	if haltSchedule == "" {
		haltSchedule = DefaultHaltSchedule
	}

	logger := log.WithComponent("scheduler")

	// Six-field parser (seconds included); the default robfig/cron parser
	// is five-field and would reject DefaultRecordSchedule/DefaultHaltSchedule.
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(stdLogAdapter{logger}))),
	)

	if _, err := c.AddFunc(recordSchedule, func() {
		logger.Info().Msg("cron trigger: requestRecording")
		controller.RequestRecording()
	}); err != nil {
		return nil, fmt.Errorf("scheduler: register record trigger %q: %w", recordSchedule, err)
	}

	if _, err := c.AddFunc(haltSchedule, func() {
		logger.Info().Msg("cron trigger: requestHalt")
		controller.RequestHalt()
	}); err != nil {
		return nil, fmt.Errorf("scheduler: register halt trigger %q: %w", haltSchedule, err)
	}

	return &Scheduler{cron: c}, nil
}

// Start begins evaluating triggers in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for any in-flight trigger callback to finish, then returns.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
