package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveChargers tracks the number of chargers currently registered
	// in the registry (slots 1..N with a live connection).
	ActiveChargers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocpp_cs_active_chargers",
		Help: "Number of chargers currently holding a registry slot.",
	})

	// FramesReceived counts inbound OCPP frames by message type (CALL,
	// CALLRESULT, CALLERROR, or "malformed" for frames that fail to parse).
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_cs_frames_received_total",
		Help: "Total number of OCPP frames received from charge points.",
	}, []string{"message_type"})

	// ActionsHandled counts inbound CALLs by action name and outcome
	// (ok, violation, not_supported, generic_error, error).
	ActionsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_cs_actions_handled_total",
		Help: "Total number of inbound CALLs handled, by action and outcome.",
	}, []string{"action", "outcome"})

	// OutboundTimeouts counts outbound calls that hit the 10s deadline
	// without a matching CALLRESULT/CALLERROR.
	OutboundTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_cs_outbound_timeouts_total",
		Help: "Total number of outbound calls that timed out waiting for a reply.",
	}, []string{"action"})

	// HandlerDuration observes handler latency by action.
	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocpp_cs_handler_duration_seconds",
		Help:    "Histogram of inbound action handler durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// TelemetryPublished counts events published to Kafka, by event type.
	TelemetryPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_cs_telemetry_published_total",
		Help: "Total number of telemetry events published to the message broker.",
	}, []string{"event_type"})
)
