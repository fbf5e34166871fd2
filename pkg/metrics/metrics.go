// Package metrics exposes the engine's Prometheus counters.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	holdsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "holds_total",
		Help:      "Reservation attempts by outcome.",
	}, []string{"outcome"})

	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "order_transitions_total",
		Help:      "Order status transitions by target status.",
	}, []string{"status"})

	ticketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "tickets_issued_total",
		Help:      "Admission tickets issued.",
	})

	webhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "webhooks_total",
		Help:      "Processor webhook deliveries by event type and result.",
	}, []string{"type", "result"})

	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "scans_total",
		Help:      "Door scans by outcome.",
	}, []string{"outcome"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ticketing",
		Name:      "scan_duration_seconds",
		Help:      "Latency of door scans.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.75, 1},
	})

	sweepTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "sweep_transitions_total",
		Help:      "State transitions applied by the reconciler.",
	}, []string{"kind"})
)

func HoldOutcome(outcome string) {
	holdsTotal.WithLabelValues(outcome).Inc()
}

func OrderTransition(status string) {
	ordersTotal.WithLabelValues(status).Inc()
}

func TicketsIssued(n int) {
	ticketsIssued.Add(float64(n))
}

func Webhook(eventType, result string) {
	webhooksTotal.WithLabelValues(eventType, result).Inc()
}

func Scan(outcome string, d time.Duration) {
	scansTotal.WithLabelValues(outcome).Inc()
	scanDuration.Observe(d.Seconds())
}

func SweepTransition(kind string, n int) {
	if n > 0 {
		sweepTransitions.WithLabelValues(kind).Add(float64(n))
	}
}

// Handler serves the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
