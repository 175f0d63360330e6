package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine holds the alert engine's Prometheus instruments.
type Engine struct {
	EventsTotal      prometheus.Counter
	MatchesTotal     prometheus.Counter
	GateRejections   *prometheus.CounterVec
	AlertsEmitted    prometheus.Counter
	IncidentsCreated prometheus.Counter
	IncidentAppends  prometheus.Counter
	Escalations      prometheus.Counter
	SweepDuration    prometheus.Histogram
}

// NewEngine registers the engine instruments on reg. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate registration.
func NewEngine(reg prometheus.Registerer) *Engine {
	factory := promauto.With(reg)
	return &Engine{
		EventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_engine_events_total",
			Help: "Events ingested by the alert engine.",
		}),
		MatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_engine_rule_matches_total",
			Help: "Rule matches before gating.",
		}),
		GateRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "alert_engine_gate_rejections_total",
			Help: "Rule matches rejected by the gate controller.",
		}, []string{"reason"}),
		AlertsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_engine_alerts_emitted_total",
			Help: "Alerts persisted and published.",
		}),
		IncidentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_engine_incidents_created_total",
			Help: "Incidents created by the batcher.",
		}),
		IncidentAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_engine_incident_appends_total",
			Help: "Alerts appended to existing incidents.",
		}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_engine_escalations_total",
			Help: "Alerts escalated by the scheduler.",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "alert_engine_escalation_sweep_seconds",
			Help:    "Escalation sweep duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
