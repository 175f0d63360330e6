package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRulesYAML(t *testing.T) {
	doc := `
rules:
  - id: pdu-low-voltage
    name: low voltage
    source: pdu-monitor
    event_type: reading
    severity: warning
    condition_logic: AND
    cooldown_seconds: 60
    message: "voltage dropped to {{voltage}}V"
    conditions:
      - field: voltage
        operator: lt
        value: 200
    rate_limit:
      enabled: true
      count: 3
      window_seconds: 300
    escalation:
      enabled: true
      after_minutes: 15
      to_severity: critical
  - name: any job failure
    source: "*"
    event_type: status-change
    severity: critical
    group_key: source
    enabled: false
    conditions:
      - field: status
        operator: eq
        value: failed
      - field: retryable
        operator: eq
        value: false
`
	rules, err := ParseRulesYAML([]byte(doc))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	first := rules[0]
	assert.Equal(t, "pdu-low-voltage", first.ID)
	assert.Equal(t, SeverityWarning, first.Severity)
	assert.Equal(t, 60, first.CooldownSeconds)
	assert.True(t, first.Enabled, "enabled defaults to true")
	require.Len(t, first.Conditions, 1)
	assert.Equal(t, OpLt, first.Conditions[0].Operator)
	assert.Equal(t, NumberValue(200), first.Conditions[0].Value)
	require.NotNil(t, first.RateLimit)
	assert.Equal(t, 3, first.RateLimit.Count)
	require.NotNil(t, first.Escalation)
	assert.Equal(t, SeverityCritical, first.Escalation.ToSeverity)

	second := rules[1]
	assert.Equal(t, Wildcard, second.Source)
	assert.Equal(t, LogicAnd, second.ConditionLogic, "logic defaults to AND")
	assert.Equal(t, GroupBySource, second.GroupKey)
	assert.False(t, second.Enabled)
	require.Len(t, second.Conditions, 2)
	assert.Equal(t, StringValue("failed"), second.Conditions[0].Value)
	assert.Equal(t, BoolValue(false), second.Conditions[1].Value)
}

func TestParseRulesYAML_Rejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not yaml",
			doc:  "rules: [",
		},
		{
			name: "unknown operator",
			doc: `
rules:
  - name: bad
    source: s
    event_type: t
    severity: info
    conditions:
      - field: x
        operator: matches
        value: 1
`,
		},
		{
			name: "structured condition value",
			doc: `
rules:
  - name: bad
    source: s
    event_type: t
    severity: info
    conditions:
      - field: x
        operator: eq
        value: {nested: true}
`,
		},
		{
			name: "unknown severity",
			doc: `
rules:
  - name: bad
    source: s
    event_type: t
    severity: fatal
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRulesYAML([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
