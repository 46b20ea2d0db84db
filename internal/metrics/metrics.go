package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client. Every Record method
// is safe to call on a nil *Metrics so components can run unmetered.
type Metrics struct {
	// REST command surface
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CommandErrors   *prometheus.CounterVec

	// Event channel
	ChannelDials      *prometheus.CounterVec
	ChannelReconnects prometheus.Counter
	ChannelConnected  prometheus.Gauge
	FramesReceived    *prometheus.CounterVec
	FramesMalformed   prometheus.Counter
	KeepaliveFailures prometheus.Counter

	// Plan store
	Resyncs        *prometheus.CounterVec
	StoreMutations *prometheus.CounterVec
	PlansKnown     prometheus.Gauge

	// Decision gates
	Decisions           *prometheus.CounterVec
	Rewinds             prometheus.Counter
	IdempotencyWarnings prometheus.Counter
	TrustScore          prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_api_requests_total",
				Help: "Total number of REST commands sent to the engine",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "amsab_api_request_duration_seconds",
				Help:    "REST command latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 180},
			},
			[]string{"operation"},
		),
		CommandErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_command_errors_total",
				Help: "Total number of failed commands by error code",
			},
			[]string{"operation", "error_code"},
		),

		ChannelDials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_channel_dials_total",
				Help: "Event channel dial attempts",
			},
			[]string{"result"},
		),
		ChannelReconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amsab_channel_reconnects_total",
				Help: "Reconnects scheduled after a transport closure",
			},
		),
		ChannelConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "amsab_channel_connected",
				Help: "1 while the event channel transport is open",
			},
		),
		FramesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_channel_events_total",
				Help: "Events delivered by the event channel",
			},
			[]string{"event"},
		),
		FramesMalformed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amsab_channel_malformed_frames_total",
				Help: "Inbound frames dropped because they could not be decoded",
			},
		),
		KeepaliveFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amsab_channel_keepalive_failures_total",
				Help: "Keepalive writes that failed and closed the transport",
			},
		),

		Resyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_store_resyncs_total",
				Help: "Plan snapshots offered to the store by outcome",
			},
			[]string{"outcome"},
		),
		StoreMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_store_mutations_total",
				Help: "Mutations applied by the plan store actor",
			},
			[]string{"kind"},
		),
		PlansKnown: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "amsab_store_plans",
				Help: "Number of plans held by the store",
			},
		),

		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amsab_gate_decisions_total",
				Help: "Human decisions submitted at approval gates",
			},
			[]string{"decision", "edited"},
		),
		Rewinds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amsab_rewinds_total",
				Help: "Branches created by rewinding a plan",
			},
		),
		IdempotencyWarnings: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "amsab_idempotency_warnings_total",
				Help: "Idempotency warnings surfaced to the user",
			},
		),
		TrustScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "amsab_trust_score",
				Help: "Advisory trust score of the active plan",
			},
		),
	}
}

// RecordRequest records a REST command and its latency. status is the
// HTTP status code, or 0 when no response arrived.
func (m *Metrics) RecordRequest(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(operation, label).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCommandError counts a failed command by error code.
func (m *Metrics) RecordCommandError(operation, code string) {
	if m == nil {
		return
	}
	m.CommandErrors.WithLabelValues(operation, code).Inc()
}

// RecordDial counts a dial attempt and tracks the connected gauge.
func (m *Metrics) RecordDial(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.ChannelDials.WithLabelValues("ok").Inc()
		m.ChannelConnected.Set(1)
		return
	}
	m.ChannelDials.WithLabelValues("error").Inc()
}

// RecordDisconnect clears the connected gauge.
func (m *Metrics) RecordDisconnect() {
	if m == nil {
		return
	}
	m.ChannelConnected.Set(0)
}

// RecordReconnect counts a scheduled reconnect.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.ChannelReconnects.Inc()
}

// RecordEvent counts a delivered event by type.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(eventType).Inc()
}

// RecordMalformed counts a dropped frame.
func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.FramesMalformed.Inc()
}

// RecordKeepaliveFailure counts a failed keepalive write.
func (m *Metrics) RecordKeepaliveFailure() {
	if m == nil {
		return
	}
	m.KeepaliveFailures.Inc()
}

// RecordResync counts a snapshot offered to the store by outcome
// (applied, unchanged, stale, inactive).
func (m *Metrics) RecordResync(outcome string) {
	if m == nil {
		return
	}
	m.Resyncs.WithLabelValues(outcome).Inc()
}

// RecordMutation counts a store mutation and updates the plan gauge.
func (m *Metrics) RecordMutation(kind string, plans int) {
	if m == nil {
		return
	}
	m.StoreMutations.WithLabelValues(kind).Inc()
	m.PlansKnown.Set(float64(plans))
}

// RecordDecision counts an approve or skip decision.
func (m *Metrics) RecordDecision(decision string, edited bool) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision, strconv.FormatBool(edited)).Inc()
}

// RecordRewind counts a branch and the warnings it surfaced.
func (m *Metrics) RecordRewind(warnings int) {
	if m == nil {
		return
	}
	m.Rewinds.Inc()
	m.IdempotencyWarnings.Add(float64(warnings))
}

// RecordTrustScore publishes the active plan's trust score.
func (m *Metrics) RecordTrustScore(score int) {
	if m == nil {
		return
	}
	m.TrustScore.Set(float64(score))
}
