package alerting

import (
	"fmt"
	"time"
)

// Alert is a single emitted notification tied to one rule match. Immutable
// once created except for acknowledgement and the escalation timestamp.
type Alert struct {
	ID           string     `json:"id"`
	RuleID       string     `json:"rule_id"`
	IncidentID   string     `json:"incident_id,omitempty"`
	Severity     Severity   `json:"severity"`
	Message      string     `json:"message"`
	SourceEvent  Event      `json:"source_event"`
	CreatedAt    time.Time  `json:"created_at"`
	Acknowledged bool       `json:"acknowledged"`
	EscalatedAt  *time.Time `json:"escalated_at,omitempty"`
}

// IncidentStatus is the operator-facing lifecycle state of an incident.
type IncidentStatus string

const (
	StatusActive        IncidentStatus = "active"
	StatusInvestigating IncidentStatus = "investigating"
	StatusResolved      IncidentStatus = "resolved"
	StatusDismissed     IncidentStatus = "dismissed"
)

// ValidIncidentStatus reports whether s names a known status.
func ValidIncidentStatus(s IncidentStatus) bool {
	switch s {
	case StatusActive, StatusInvestigating, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// Open reports whether the incident still accepts operator transitions.
func (s IncidentStatus) Open() bool {
	return s == StatusActive || s == StatusInvestigating
}

// Incident is a batched group of related alerts, the primary unit of
// investigation. Its severity is always the maximum severity among its
// alerts; its status moves only through explicit operator action.
type Incident struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Severity         Severity       `json:"severity"`
	Status           IncidentStatus `json:"status"`
	Impact           string         `json:"impact"`
	AlertCount       int            `json:"alert_count"`
	HasForgeAnalysis bool           `json:"has_forge_analysis"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
	Alerts           []*Alert       `json:"alerts,omitempty"`
}

// Transition applies an operator-initiated status change. Creation always
// starts at active; resolved and dismissed are terminal. Escalation changes
// severity, never status, so it never goes through here.
func (inc *Incident) Transition(next IncidentStatus, now time.Time) error {
	if !ValidIncidentStatus(next) {
		return fmt.Errorf("unknown incident status %q", next)
	}
	if next == inc.Status {
		return nil
	}
	if !inc.Status.Open() {
		return fmt.Errorf("incident %s is %s and cannot transition to %s", inc.ID, inc.Status, next)
	}
	if next == StatusActive {
		return fmt.Errorf("incident %s cannot move back to active", inc.ID)
	}
	inc.Status = next
	inc.UpdatedAt = now
	if next == StatusResolved || next == StatusDismissed {
		t := now
		inc.ResolvedAt = &t
	}
	return nil
}
