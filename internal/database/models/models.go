package models

import (
	"database/sql"
	"time"
)

// AlertRuleRow is the alert_rules table shape. Structured sub-configs
// (conditions, time window, rate limit, escalation) are stored as JSON.
type AlertRuleRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Source          string         `db:"source"`
	EventType       string         `db:"event_type"`
	Severity        string         `db:"severity"`
	Conditions      string         `db:"conditions"`
	ConditionLogic  string         `db:"condition_logic"`
	CooldownSeconds int            `db:"cooldown_seconds"`
	TimeWindow      sql.NullString `db:"time_window"`
	RateLimit       sql.NullString `db:"rate_limit"`
	Escalation      sql.NullString `db:"escalation"`
	GroupKey        sql.NullString `db:"group_key"`
	Message         sql.NullString `db:"message"`
	Enabled         bool           `db:"enabled"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// AlertRow is the alerts table shape. The originating event is stored as
// JSON; incident_id is set when the batcher correlates the alert.
type AlertRow struct {
	ID           string         `db:"id"`
	RuleID       string         `db:"rule_id"`
	IncidentID   sql.NullString `db:"incident_id"`
	Severity     string         `db:"severity"`
	Message      string         `db:"message"`
	SourceEvent  string         `db:"source_event"`
	CreatedAt    time.Time      `db:"created_at"`
	Acknowledged bool           `db:"acknowledged"`
	EscalatedAt  sql.NullTime   `db:"escalated_at"`
}

// IncidentRow is the incidents table shape.
type IncidentRow struct {
	ID               string       `db:"id"`
	Title            string       `db:"title"`
	Severity         string       `db:"severity"`
	Status           string       `db:"status"`
	Impact           string       `db:"impact"`
	AlertCount       int          `db:"alert_count"`
	HasForgeAnalysis bool         `db:"has_forge_analysis"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
	ResolvedAt       sql.NullTime `db:"resolved_at"`
}
