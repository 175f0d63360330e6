package alerting

import (
	"fmt"
	"time"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpLt          Operator = "lt"
	OpGte         Operator = "gte"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

var validOperators = map[Operator]bool{
	OpEq: true, OpNe: true,
	OpGt: true, OpLt: true, OpGte: true, OpLte: true,
	OpContains: true, OpNotContains: true,
}

// ConditionLogic combines a rule's conditions.
type ConditionLogic string

const (
	LogicAnd ConditionLogic = "AND"
	LogicOr  ConditionLogic = "OR"
)

// Severity classifies alerts and incidents.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityCritical: 3,
}

// SeverityRank orders severities for aggregation and escalation. Unknown
// severities rank below info.
func SeverityRank(s Severity) int {
	return severityRanks[s]
}

// MaxSeverity returns the highest severity among the given alerts.
func MaxSeverity(alerts []*Alert) Severity {
	max := SeverityInfo
	for _, a := range alerts {
		if SeverityRank(a.Severity) > SeverityRank(max) {
			max = a.Severity
		}
	}
	return max
}

// GroupKey selects the correlation key the incident batcher groups alerts by.
type GroupKey string

const (
	GroupByRule     GroupKey = "rule"
	GroupBySource   GroupKey = "source"
	GroupBySeverity GroupKey = "severity"
	GroupByGlobal   GroupKey = "global"
)

// Condition is a single field comparison belonging to exactly one rule.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// Validate rejects malformed conditions at rule-save time so the evaluator
// never encounters an invalid condition at runtime.
func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("condition field is required")
	}
	if !validOperators[c.Operator] {
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	switch c.Operator {
	case OpGt, OpLt, OpGte, OpLte:
		if _, ok := c.Value.Number(); !ok {
			return fmt.Errorf("operator %q requires a numeric value", c.Operator)
		}
	}
	return nil
}

// TimeWindow restricts when a rule is allowed to fire. Start and End are
// "HH:MM" wall-clock times evaluated in the window's timezone; Days are ISO
// weekdays (1=Monday .. 7=Sunday). An empty Days set means every day. A
// window with Start > End wraps past midnight.
type TimeWindow struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Days     []int  `json:"days,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Location resolves the window's timezone, defaulting to UTC.
func (tw *TimeWindow) Location() (*time.Location, error) {
	if tw.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tw.Timezone)
}

// Contains reports whether now falls inside the window. Validation at rule
// save guarantees the formats parse; a window that fails to resolve its
// timezone is treated as closed.
func (tw *TimeWindow) Contains(now time.Time) bool {
	loc, err := tw.Location()
	if err != nil {
		return false
	}
	local := now.In(loc)

	if len(tw.Days) > 0 {
		iso := int(local.Weekday())
		if iso == 0 {
			iso = 7
		}
		found := false
		for _, d := range tw.Days {
			if d == iso {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, err := parseClock(tw.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(tw.End)
	if err != nil {
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Window wraps midnight, e.g. 22:00-06:00.
	return minute >= start || minute < end
}

// Validate checks clock formats, days and timezone.
func (tw *TimeWindow) Validate() error {
	if _, err := parseClock(tw.Start); err != nil {
		return fmt.Errorf("invalid time window start: %w", err)
	}
	if _, err := parseClock(tw.End); err != nil {
		return fmt.Errorf("invalid time window end: %w", err)
	}
	for _, d := range tw.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("time window day must be 1..7, got %d", d)
		}
	}
	if _, err := tw.Location(); err != nil {
		return fmt.Errorf("invalid time window timezone %q: %w", tw.Timezone, err)
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// RateLimit caps the number of fires per rule within a sliding window.
type RateLimit struct {
	Enabled       bool `json:"enabled"`
	Count         int  `json:"count"`
	WindowSeconds int  `json:"window_seconds"`
}

// Validate checks rate limit bounds.
func (rl *RateLimit) Validate() error {
	if rl.Count < 1 {
		return fmt.Errorf("rate limit count must be at least 1")
	}
	if rl.WindowSeconds < 1 {
		return fmt.Errorf("rate limit window must be at least 1 second")
	}
	return nil
}

// Escalation raises the severity of an unacknowledged alert after a delay.
// It applies to the alert produced by the rule, never to the rule itself.
type Escalation struct {
	Enabled      bool     `json:"enabled"`
	AfterMinutes int      `json:"after_minutes"`
	ToSeverity   Severity `json:"to_severity"`
}

// Validate checks escalation bounds.
func (e *Escalation) Validate() error {
	if e.AfterMinutes < 1 {
		return fmt.Errorf("escalation delay must be at least 1 minute")
	}
	if SeverityRank(e.ToSeverity) == 0 {
		return fmt.Errorf("unknown escalation severity %q", e.ToSeverity)
	}
	return nil
}

// AlertRule is a user-configured condition set plus gating parameters that,
// when matched by an event, produces an Alert. Source and EventType accept
// the wildcard "*". Mutation is an atomic replace through the engine.
type AlertRule struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Source          string         `json:"source"`
	EventType       string         `json:"event_type"`
	Severity        Severity       `json:"severity"`
	Conditions      []Condition    `json:"conditions"`
	ConditionLogic  ConditionLogic `json:"condition_logic"`
	CooldownSeconds int            `json:"cooldown_seconds"`
	TimeWindow      *TimeWindow    `json:"time_window,omitempty"`
	RateLimit       *RateLimit     `json:"rate_limit,omitempty"`
	Escalation      *Escalation    `json:"escalation,omitempty"`
	GroupKey        GroupKey       `json:"group_key,omitempty"`
	Message         string         `json:"message,omitempty"`
	Enabled         bool           `json:"enabled"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate rejects malformed rules at save time so configuration errors
// never surface during evaluation.
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.Source == "" {
		return fmt.Errorf("rule source is required (use \"*\" for any)")
	}
	if r.EventType == "" {
		return fmt.Errorf("rule event type is required (use \"*\" for any)")
	}
	if SeverityRank(r.Severity) == 0 {
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	if r.ConditionLogic != LogicAnd && r.ConditionLogic != LogicOr {
		return fmt.Errorf("condition logic must be AND or OR, got %q", r.ConditionLogic)
	}
	if r.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	if r.TimeWindow != nil && r.TimeWindow.Enabled {
		if err := r.TimeWindow.Validate(); err != nil {
			return err
		}
	}
	if r.RateLimit != nil && r.RateLimit.Enabled {
		if err := r.RateLimit.Validate(); err != nil {
			return err
		}
	}
	if r.Escalation != nil && r.Escalation.Enabled {
		if err := r.Escalation.Validate(); err != nil {
			return err
		}
	}
	switch r.GroupKey {
	case "", GroupByRule, GroupBySource, GroupBySeverity, GroupByGlobal:
	default:
		return fmt.Errorf("unknown group key %q", r.GroupKey)
	}
	return nil
}

// Clone returns a deep copy so callers can never mutate engine state through
// a returned rule.
func (r *AlertRule) Clone() *AlertRule {
	clone := *r
	clone.Conditions = append([]Condition(nil), r.Conditions...)
	if r.TimeWindow != nil {
		tw := *r.TimeWindow
		tw.Days = append([]int(nil), r.TimeWindow.Days...)
		clone.TimeWindow = &tw
	}
	if r.RateLimit != nil {
		rl := *r.RateLimit
		clone.RateLimit = &rl
	}
	if r.Escalation != nil {
		esc := *r.Escalation
		clone.Escalation = &esc
	}
	return &clone
}
