package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	ReportsCreated         prometheus.Counter
	ReportCreationFailures *prometheus.CounterVec
	Transitions            *prometheus.CounterVec
	RewardsCredited        prometheus.Counter
	NotificationsSent      *prometheus.CounterVec
	PublishFailures        prometheus.Counter
	BacklinkFailures       *prometheus.CounterVec
	GeoLookupDuration      prometheus.Histogram
	ConnectedClients       prometheus.Gauge
}

// New creates the metrics and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry() so collectors never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wastewatch_reports_created_total",
			Help: "Total number of waste reports accepted",
		}),
		ReportCreationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wastewatch_report_creation_failures_total",
			Help: "Report submissions rejected, by error kind",
		}, []string{"kind"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wastewatch_report_transitions_total",
			Help: "Successful status transitions, by target status",
		}, []string{"status"}),
		RewardsCredited: factory.NewCounter(prometheus.CounterOpts{
			Name: "wastewatch_rewards_credited_total",
			Help: "Reward credits issued on resolution",
		}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wastewatch_notifications_dispatched_total",
			Help: "Notifications persisted, by audience role",
		}, []string{"role"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wastewatch_notification_publish_failures_total",
			Help: "Realtime publishes that failed after the record was stored",
		}),
		BacklinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wastewatch_backlink_failures_total",
			Help: "Best-effort backlink writes that failed, by owner",
		}, []string{"owner"}),
		GeoLookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wastewatch_geo_lookup_duration_seconds",
			Help:    "Latency of nearest-authority lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
		}),
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wastewatch_realtime_clients",
			Help: "Websocket clients currently connected",
		}),
	}
}

// NewNoop returns metrics bound to a throwaway registry.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}
