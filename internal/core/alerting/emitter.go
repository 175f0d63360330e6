package alerting

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/metrics"
)

var templateFieldRe = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// Emitter converts a gated rule match into a persisted Alert and publishes
// it downstream. The alert is durable before Emit returns; the downstream
// publish is fire-and-forget.
type Emitter struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Engine
	logger   *logrus.Logger
}

// NewEmitter wires an emitter. notifier may be nil.
func NewEmitter(store Store, notifier Notifier, m *metrics.Engine, logger *logrus.Logger) *Emitter {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Emitter{store: store, notifier: notifier, metrics: m, logger: logger}
}

// Emit builds and persists the alert for a rule match. A persistence failure
// propagates to the caller as a retryable error; no alert is published that
// was not durably written first.
func (e *Emitter) Emit(ctx context.Context, rule *AlertRule, event Event, now time.Time) (*Alert, error) {
	alert := &Alert{
		ID:          uuid.New().String(),
		RuleID:      rule.ID,
		Severity:    rule.Severity,
		Message:     RenderMessage(rule, event),
		SourceEvent: event,
		CreatedAt:   now,
	}

	if err := e.store.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("persist alert for rule %s: %w", rule.ID, err)
	}

	if e.metrics != nil {
		e.metrics.AlertsEmitted.Inc()
	}
	e.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"rule_id":  rule.ID,
		"severity": alert.Severity,
		"source":   event.Source,
	}).Info("Alert emitted")

	e.notifier.AlertFired(alert)
	return alert, nil
}

// RenderMessage substitutes {{field}} placeholders in the rule's message
// template with event field values. {{source}} and {{type}} resolve to the
// event envelope. Rules without a template get a generated message.
func RenderMessage(rule *AlertRule, event Event) string {
	if rule.Message == "" {
		return fmt.Sprintf("%s: %s event from %s", rule.Name, event.Type, event.Source)
	}

	return templateFieldRe.ReplaceAllStringFunc(rule.Message, func(match string) string {
		name := strings.TrimSpace(strings.Trim(match, "{}"))
		switch name {
		case "source":
			return event.Source
		case "type":
			return event.Type
		}
		if v, ok := event.Fields[name]; ok {
			return v.String()
		}
		return match
	})
}
