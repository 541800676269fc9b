// Package metrics provides Prometheus metrics for session tallies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceLines is the number of lines in the latest tally of a source,
	// by parse result ("parsed", "skipped"). Re-tallying replaces the value.
	SourceLines = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sessiontally_source_lines",
		Help: "Log lines read in the most recent tally, by source and parse result.",
	}, []string{"source", "result"})

	// SourceSessions is the number of sessions in the latest tally of a
	// source, by how they were closed.
	SourceSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sessiontally_source_sessions",
		Help: "Sessions in the most recent tally, by source and kind (matched, dangling_start, dangling_end).",
	}, []string{"source", "kind"})

	// TallyRunsTotal counts tally runs by outcome ("ok", "empty", "error").
	TallyRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiontally_runs_total",
		Help: "Total number of tally runs, by outcome.",
	}, []string{"outcome"})

	// ReportUsers is the number of users in the latest report per source.
	ReportUsers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sessiontally_report_users",
		Help: "Number of users in the most recent report, by source.",
	}, []string{"source"})

	// RecordedEventsTotal counts lines written by the logind recorder.
	RecordedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiontally_recorded_events_total",
		Help: "Total number of events appended by the recorder, by action.",
	}, []string{"action"})
)
