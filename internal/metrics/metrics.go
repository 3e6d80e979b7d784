// Package metrics collects Prometheus metrics for the engine and exposes
// them for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the reconciler, coordinator and
// favorite toggle.
type Recorder interface {
	RecordChange(kind string)
	RecordStaleEvent()
	RecordStreamError()
	RecordBookingAttempt(outcome string)
	RecordReservationEnded(reason string)
	RecordFavoriteRollback()
	RecordRemoteLatency(op string, d time.Duration)
	SetPointsCached(n int)
}

// Ensure Collector implements Recorder at compile time.
var _ Recorder = (*Collector)(nil)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	changes          *prometheus.CounterVec
	staleEvents      prometheus.Counter
	streamErrors     prometheus.Counter
	bookingAttempts  *prometheus.CounterVec
	reservationsDone *prometheus.CounterVec
	favoriteRollback prometheus.Counter
	remoteLatency    *prometheus.HistogramVec
	pointsCached     prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feeder_ledger_changes_total",
			Help: "Applied change events by classification.",
		}, []string{"kind"}),
		staleEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feeder_ledger_stale_events_total",
			Help: "Change events dropped because a newer copy was cached.",
		}),
		streamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feeder_stream_errors_total",
			Help: "Failed change feed polls.",
		}),
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feeder_booking_attempts_total",
			Help: "Start feeding attempts by outcome.",
		}, []string{"outcome"}),
		reservationsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feeder_reservations_ended_total",
			Help: "Reservations that left InProgress, by reason.",
		}, []string{"reason"}),
		favoriteRollback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feeder_favorite_rollbacks_total",
			Help: "Optimistic favorite flips reverted after a failed mutation.",
		}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feeder_remote_latency_seconds",
			Help:    "Latency of remote calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		pointsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feeder_points_cached",
			Help: "Feeding points held in the ledger.",
		}),
	}

	reg.MustRegister(
		c.changes,
		c.staleEvents,
		c.streamErrors,
		c.bookingAttempts,
		c.reservationsDone,
		c.favoriteRollback,
		c.remoteLatency,
		c.pointsCached,
	)
	return c
}

// RecordChange counts an applied change by classification.
func (c *Collector) RecordChange(kind string) { c.changes.WithLabelValues(kind).Inc() }

// RecordStaleEvent counts a dropped out-of-order or duplicate event.
func (c *Collector) RecordStaleEvent() { c.staleEvents.Inc() }

// RecordStreamError counts a failed change feed poll.
func (c *Collector) RecordStreamError() { c.streamErrors.Inc() }

// RecordBookingAttempt counts a start attempt ("booked", "already_booked",
// "network", "rejected").
func (c *Collector) RecordBookingAttempt(outcome string) {
	c.bookingAttempts.WithLabelValues(outcome).Inc()
}

// RecordReservationEnded counts a reservation ending ("finished",
// "cancelled", "expired").
func (c *Collector) RecordReservationEnded(reason string) {
	c.reservationsDone.WithLabelValues(reason).Inc()
}

// RecordFavoriteRollback counts a reverted favorite flip.
func (c *Collector) RecordFavoriteRollback() { c.favoriteRollback.Inc() }

// RecordRemoteLatency observes the duration of a remote call.
func (c *Collector) RecordRemoteLatency(op string, d time.Duration) {
	c.remoteLatency.WithLabelValues(op).Observe(d.Seconds())
}

// SetPointsCached sets the ledger size gauge.
func (c *Collector) SetPointsCached(n int) { c.pointsCached.Set(float64(n)) }

// Nop discards every observation. It is the default for components built
// without a collector.
type Nop struct{}

func (Nop) RecordChange(string)                       {}
func (Nop) RecordStaleEvent()                         {}
func (Nop) RecordStreamError()                        {}
func (Nop) RecordBookingAttempt(string)               {}
func (Nop) RecordReservationEnded(string)             {}
func (Nop) RecordFavoriteRollback()                   {}
func (Nop) RecordRemoteLatency(string, time.Duration) {}
func (Nop) SetPointsCached(int)                       {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
