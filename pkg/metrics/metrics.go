package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Publish path metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishpatch_events_published_total",
			Help: "Total number of events published by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	PublishRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishpatch_publish_retries_total",
			Help: "Total number of transient-send retry attempts by channel",
		},
		[]string{"channel"},
	)

	StoreAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dishpatch_store_append_failures_total",
			Help: "Total number of durable event log append failures",
		},
	)

	OversizedPayloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishpatch_oversized_payloads_total",
			Help: "Total number of payloads sent as thin stand-ins by channel",
		},
		[]string{"channel"},
	)

	// Hub metrics
	HubConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dishpatch_hub_connected",
			Help: "Whether the hub's transport connections are up (1 = connected)",
		},
	)

	ReconnectAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dishpatch_reconnect_attempts_total",
			Help: "Total number of reconnection attempts",
		},
	)

	ReconnectFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dishpatch_reconnect_failures_total",
			Help: "Total number of failed reconnection attempts",
		},
	)

	ReconnectGaveUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dishpatch_reconnect_gaveup",
			Help: "Whether reconnection attempts are exhausted (1 = gave up, page an operator)",
		},
	)

	// Dispatch metrics
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishpatch_notifications_dispatched_total",
			Help: "Total number of inbound notifications decoded and re-emitted by channel",
		},
		[]string{"channel"},
	)

	MalformedPayloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dishpatch_malformed_payloads_total",
			Help: "Total number of inbound notifications dropped as undecodable",
		},
	)

	// Broker metrics
	BrokerListeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dishpatch_broker_listeners",
			Help: "Current number of listeners on the internal broker",
		},
	)

	// Event log metrics
	EventsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dishpatch_events_pruned_total",
			Help: "Total number of durable event records removed by retention pruning",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(PublishRetries)
	prometheus.MustRegister(StoreAppendFailures)
	prometheus.MustRegister(OversizedPayloads)
	prometheus.MustRegister(HubConnected)
	prometheus.MustRegister(ReconnectAttempts)
	prometheus.MustRegister(ReconnectFailures)
	prometheus.MustRegister(ReconnectGaveUp)
	prometheus.MustRegister(NotificationsDispatched)
	prometheus.MustRegister(MalformedPayloads)
	prometheus.MustRegister(BrokerListeners)
	prometheus.MustRegister(EventsPruned)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
