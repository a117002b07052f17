package control

import (
	"time"

	"github.com/loghaan/cablewatch/internal/recorder"
)

// wireTimeLayout is the human-scale timestamp format the external
// websocket contract uses for status frames, distinct from the segment
// filename grammar's layout.
const wireTimeLayout = "2006-01-02 15h04"

// StatusFrame is the outbound "status" wire shape (spec.md §6).
type StatusFrame struct {
	Type                    string  `json:"type"`
	RecordingRequested      bool    `json:"recording_requested"`
	SegmentFilename         *string `json:"segment_filename"`
	PID                     *int    `json:"pid"`
	ServiceStartTime        *string `json:"service_start_time"`
	RecordStartTime         *string `json:"record_start_time"`
	HaltStartTime           *string `json:"halt_start_time"`
	NumberOfLaunchedRecords int     `json:"number_of_launched_records"`
	NumberOfFailedRecords   int     `json:"number_of_failed_records"`
}

// CommandReplyFrame is the outbound "command-reply" wire shape.
type CommandReplyFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func wireTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(wireTimeLayout)
	return &s
}

func wireString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func wireInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

// newStatusFrame adapts a recorder.Status snapshot to the wire contract.
func newStatusFrame(s recorder.Status) StatusFrame {
	return StatusFrame{
		Type:                    "status",
		RecordingRequested:      s.RecordingRequested,
		SegmentFilename:         wireString(s.SegmentFilename),
		PID:                     wireInt(s.PID),
		ServiceStartTime:        wireTime(s.ServiceStartTime),
		RecordStartTime:         wireTime(s.RecordStartTime),
		HaltStartTime:           wireTime(s.HaltStartTime),
		NumberOfLaunchedRecords: s.NumberOfLaunchedRecords,
		NumberOfFailedRecords:   s.NumberOfFailedRecords,
	}
}
