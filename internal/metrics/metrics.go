// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsLaunched counts every runCommand invocation.
	RecordsLaunched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cablewatch_records_launched_total",
		Help: "Total number of capture pipeline launches.",
	})

	// RecordsFailed counts every abnormal capture pipeline exit that
	// was not the result of an operator-requested halt.
	RecordsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cablewatch_records_failed_total",
		Help: "Total number of capture pipeline exits counted as failures.",
	})

	// DriftSeconds reports the rolling average wall-clock/stream drift.
	DriftSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cablewatch_drift_seconds",
		Help: "Rolling average drift (wall clock minus embedded program-date-time), in seconds.",
	})

	// HolesMarked counts every .hole marker written.
	HolesMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cablewatch_holes_marked_total",
		Help: "Total number of hole markers written after an abnormal capture exit.",
	})

	// ProcTerminate tracks signal delivery outcomes during process-group shutdown.
	ProcTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cablewatch_proc_terminate_total",
		Help: "Outcomes of signal delivery during supervised process-group termination.",
	}, []string{"signal", "result"})

	// StartupFlapAborts counts the times checkFatalAtStartup trips the
	// startup flap guard.
	StartupFlapAborts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cablewatch_startup_flap_aborts_total",
		Help: "Total number of times the startup flap detector tore down the service.",
	})

	// ProcWait tracks how the supervised process-group's Wait() resolved
	// during a proctree.KillTree call.
	ProcWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cablewatch_proc_wait_total",
		Help: "Outcomes of waiting for a supervised process group to exit during termination.",
	}, []string{"outcome"})
)

// IncProcTerminate records a signal-delivery outcome.
func IncProcTerminate(signal, result string) {
	ProcTerminate.WithLabelValues(signal, result).Inc()
}

// IncProcWait records a Wait() outcome during proctree.KillTree.
func IncProcWait(outcome string) {
	ProcWait.WithLabelValues(outcome).Inc()
}
