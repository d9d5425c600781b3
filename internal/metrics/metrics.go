// Package metrics exposes ingest counters for the tracker process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts normalized gateway events by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatstats_events_total",
		Help: "Gateway events accepted by the normalizer, by kind.",
	}, []string{"kind"})

	// EventsDropped counts events the normalizer refused.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatstats_events_dropped_total",
		Help: "Gateway events dropped before any record write, by reason.",
	}, []string{"reason"})

	// RecordsWritten counts successful record-store writes by record type.
	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatstats_records_written_total",
		Help: "Records written to the store, by type.",
	}, []string{"type"})

	// StoreFailures counts failed record-store writes.
	StoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatstats_store_failures_total",
		Help: "Record store writes that returned an error.",
	})

	// DuplicateJoins counts join events that corrected a stale open session.
	DuplicateJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatstats_duplicate_joins_total",
		Help: "Voice joins observed for a user already marked open in the guild.",
	})

	// OpenVoiceSessions tracks the in-memory open session count.
	OpenVoiceSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatstats_open_voice_sessions",
		Help: "Currently open in-memory voice sessions.",
	})
)
