package recorder

import "time"

// State is the Recorder's coarse lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateRecording   State = "recording"
	StateHalting     State = "halting"
	StateFlapAborted State = "flap_aborted"
)

// Status is the snapshot broadcast to control-plane subscribers and
// returned by the CLI/HTTP status surface. Field names mirror the
// websocket "status" frame contract (see internal/control); control
// owns the actual JSON wire shape, this is the internal source of truth.
type Status struct {
	State                   State
	RecordingRequested      bool
	SegmentFilename         string
	PID                     int
	ServiceStartTime        time.Time
	RecordStartTime         time.Time
	HaltStartTime           time.Time
	NumberOfLaunchedRecords int
	NumberOfFailedRecords   int
	DriftSeconds            float64
}

// Snapshot returns the current Status under the Recorder's lock.
func (r *Recorder) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		State:                   r.state,
		RecordingRequested:      r.recordingRequested,
		SegmentFilename:         r.currentSegmentFilename,
		PID:                     r.currentPID,
		ServiceStartTime:        r.serviceStartTime,
		RecordStartTime:         r.recordStartTime,
		HaltStartTime:           r.haltStartTime,
		NumberOfLaunchedRecords: r.numberOfLaunchedRecords,
		NumberOfFailedRecords:   r.numberOfFailedRecords,
		DriftSeconds:            r.drift.Mean().Seconds(),
	}
}
