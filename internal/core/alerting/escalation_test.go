package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRules map[string]*AlertRule

func (s staticRules) RuleByID(id string) (*AlertRule, bool) {
	r, ok := s[id]
	return r, ok
}

func escalationRule(afterMinutes int, to Severity) *AlertRule {
	return &AlertRule{
		ID:             "esc-rule",
		Name:           "escalating rule",
		Source:         "*",
		EventType:      "*",
		Severity:       SeverityWarning,
		ConditionLogic: LogicAnd,
		Escalation:     &Escalation{Enabled: true, AfterMinutes: afterMinutes, ToSeverity: to},
		Enabled:        true,
	}
}

func escAlert(id string, sev Severity, createdAt time.Time) *Alert {
	return &Alert{
		ID:        id,
		RuleID:    "esc-rule",
		Severity:  sev,
		Message:   "needs attention",
		CreatedAt: createdAt,
		SourceEvent: Event{
			Source: "pdu-monitor",
			Type:   "reading",
		},
	}
}

func TestSweeper_EscalatesAfterDelay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rules := staticRules{"esc-rule": escalationRule(15, SeverityCritical)}
	sweeper := NewSweeper(store, rules, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAlert(ctx, escAlert("a1", SeverityWarning, created)))

	// Too early: nothing happens.
	sweeper.Sweep(ctx, created.Add(10*time.Minute))
	a, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a.EscalatedAt)
	assert.Equal(t, SeverityWarning, a.Severity)

	// Past the delay: severity raised, timestamp set.
	due := created.Add(15 * time.Minute)
	sweeper.Sweep(ctx, due)
	a, err = store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, a.EscalatedAt)
	assert.Equal(t, due, *a.EscalatedAt)
	assert.Equal(t, SeverityCritical, a.Severity)
}

func TestSweeper_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rules := staticRules{"esc-rule": escalationRule(15, SeverityCritical)}
	sweeper := NewSweeper(store, rules, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAlert(ctx, escAlert("a1", SeverityWarning, created)))

	first := created.Add(20 * time.Minute)
	sweeper.Sweep(ctx, first)
	afterFirst, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)

	// An immediate second sweep is a no-op: same timestamp, same severity.
	sweeper.Sweep(ctx, first.Add(time.Minute))
	afterSecond, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)

	assert.Equal(t, afterFirst.EscalatedAt, afterSecond.EscalatedAt)
	assert.Equal(t, afterFirst.Severity, afterSecond.Severity)
}

func TestSweeper_NeverDowngrades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rules := staticRules{"esc-rule": escalationRule(15, SeverityInfo)}
	sweeper := NewSweeper(store, rules, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAlert(ctx, escAlert("a1", SeverityCritical, created)))

	sweeper.Sweep(ctx, created.Add(time.Hour))
	a, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.NotNil(t, a.EscalatedAt)
}

func TestSweeper_SkipsAcknowledged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rules := staticRules{"esc-rule": escalationRule(15, SeverityCritical)}
	sweeper := NewSweeper(store, rules, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	acked := escAlert("a1", SeverityWarning, created)
	acked.Acknowledged = true
	require.NoError(t, store.SaveAlert(ctx, acked))

	sweeper.Sweep(ctx, created.Add(time.Hour))
	a, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a.EscalatedAt)
	assert.Equal(t, SeverityWarning, a.Severity)
}

func TestSweeper_SkipsRulesWithoutEscalation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	plain := escalationRule(15, SeverityCritical)
	plain.Escalation = nil
	sweeper := NewSweeper(store, staticRules{"esc-rule": plain}, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAlert(ctx, escAlert("a1", SeverityWarning, created)))

	sweeper.Sweep(ctx, created.Add(time.Hour))
	a, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a.EscalatedAt)
}

func TestSweeper_RecomputesIncidentSeverity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rules := staticRules{"esc-rule": escalationRule(15, SeverityCritical)}
	sweeper := NewSweeper(store, rules, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	a1 := escAlert("a1", SeverityWarning, created)
	a2 := escAlert("a2", SeverityWarning, created)
	require.NoError(t, store.SaveAlert(ctx, a1))
	require.NoError(t, store.SaveAlert(ctx, a2))

	inc := &Incident{
		ID:         "inc1",
		Title:      "correlated",
		Severity:   SeverityWarning,
		Status:     StatusActive,
		AlertCount: 2,
		CreatedAt:  created,
		UpdatedAt:  created,
		Alerts:     []*Alert{a1, a2},
	}
	require.NoError(t, store.CreateIncident(ctx, inc))
	a1.IncidentID = "inc1"
	a2.IncidentID = "inc1"

	sweeper.Sweep(ctx, created.Add(time.Hour))

	got, err := store.GetIncident(ctx, "inc1")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, got.Severity)
	// Escalation never touches status.
	assert.Equal(t, StatusActive, got.Status)
}

func TestSweeper_UnknownRuleIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sweeper := NewSweeper(store, staticRules{}, nil, nil, testLogger())

	created := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAlert(ctx, escAlert("a1", SeverityWarning, created)))

	// The rule was deleted after the alert fired; the sweep must not fail.
	sweeper.Sweep(ctx, created.Add(time.Hour))
	a, err := store.GetAlert(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, a.EscalatedAt)
}
