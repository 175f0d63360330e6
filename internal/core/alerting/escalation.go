package alerting

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/metrics"
)

// RuleSource resolves rules for the sweeper. The engine implements it.
type RuleSource interface {
	RuleByID(id string) (*AlertRule, bool)
}

// Sweeper is the timer-driven escalation scheduler. Each sweep scans open
// (unacknowledged, not yet escalated) alerts and raises severity once the
// originating rule's escalation delay has elapsed. Sweeps are idempotent:
// re-running immediately after a sweep changes nothing.
type Sweeper struct {
	store    Store
	rules    RuleSource
	notifier Notifier
	metrics  *metrics.Engine
	logger   *logrus.Logger
}

// NewSweeper wires a sweeper. notifier may be nil.
func NewSweeper(store Store, rules RuleSource, notifier Notifier, m *metrics.Engine, logger *logrus.Logger) *Sweeper {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Sweeper{store: store, rules: rules, notifier: notifier, metrics: m, logger: logger}
}

// Sweep runs one escalation pass at the given wall-clock instant. A failure
// on one alert is logged and skipped; the alert is retried on the next sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
		}
	}()

	alerts, err := s.store.ListOpenAlerts(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Escalation sweep could not list open alerts")
		return
	}

	for _, alert := range alerts {
		if err := s.sweepAlert(ctx, alert, now); err != nil {
			s.logger.WithError(err).WithField("alert_id", alert.ID).
				Error("Escalation failed, will retry next sweep")
		}
	}
}

func (s *Sweeper) sweepAlert(ctx context.Context, alert *Alert, now time.Time) error {
	rule, ok := s.rules.RuleByID(alert.RuleID)
	if !ok || rule.Escalation == nil || !rule.Escalation.Enabled {
		return nil
	}
	esc := rule.Escalation
	if now.Sub(alert.CreatedAt) < time.Duration(esc.AfterMinutes)*time.Minute {
		return nil
	}

	var escalated *Alert
	err := s.store.UpdateAlert(ctx, alert.ID, func(a *Alert) error {
		// Re-checked under the store's atomic update: a concurrent sweep
		// or acknowledgement wins.
		if a.EscalatedAt != nil || a.Acknowledged {
			return nil
		}
		t := now
		a.EscalatedAt = &t
		// Severity moves only upward.
		if SeverityRank(esc.ToSeverity) > SeverityRank(a.Severity) {
			a.Severity = esc.ToSeverity
		}
		cp := *a
		escalated = &cp
		return nil
	})
	if err != nil {
		return err
	}
	if escalated == nil {
		return nil
	}

	if s.metrics != nil {
		s.metrics.Escalations.Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"alert_id": escalated.ID,
		"rule_id":  rule.ID,
		"severity": escalated.Severity,
	}).Info("Alert escalated")

	if escalated.IncidentID != "" {
		if err := s.recomputeIncident(ctx, escalated.IncidentID, now); err != nil {
			return err
		}
	}

	s.notifier.AlertEscalated(escalated)
	return nil
}

// recomputeIncident re-derives the incident's aggregate severity after one
// of its alerts escalated, via the store's atomic update so it cannot race
// a concurrent batcher append.
func (s *Sweeper) recomputeIncident(ctx context.Context, incidentID string, now time.Time) error {
	var updated *Incident
	err := s.store.UpdateIncident(ctx, incidentID, func(inc *Incident) error {
		sev := MaxSeverity(inc.Alerts)
		if sev == inc.Severity {
			return nil
		}
		inc.Severity = sev
		inc.UpdatedAt = now
		cp := *inc
		updated = &cp
		return nil
	})
	if err != nil {
		return err
	}
	if updated != nil {
		s.notifier.IncidentUpdated(updated)
	}
	return nil
}
