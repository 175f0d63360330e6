package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func matcherRule(id, source, eventType string) *AlertRule {
	return &AlertRule{
		ID:             id,
		Name:           id,
		Source:         source,
		EventType:      eventType,
		Severity:       SeverityInfo,
		ConditionLogic: LogicAnd,
		Enabled:        true,
	}
}

func matchedIDs(rules []*AlertRule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestMatcher_FilterBuckets(t *testing.T) {
	m := NewMatcher()
	m.Rebuild([]*AlertRule{
		matcherRule("exact", "pdu-monitor", "reading"),
		matcherRule("any-type", "pdu-monitor", "*"),
		matcherRule("any-source", "*", "reading"),
		matcherRule("catch-all", "*", "*"),
		matcherRule("other", "job-runner", "finished"),
	})

	event := testEvent(nil)
	matched := matchedIDs(m.Match(event))
	assert.ElementsMatch(t, []string{"exact", "any-type", "any-source", "catch-all"}, matched)

	other := Event{Source: "job-runner", Type: "finished"}
	assert.ElementsMatch(t, []string{"other", "catch-all"}, matchedIDs(m.Match(other)))

	unknown := Event{Source: "nobody", Type: "nothing"}
	assert.ElementsMatch(t, []string{"catch-all"}, matchedIDs(m.Match(unknown)))
}

func TestMatcher_DisabledRulesExcluded(t *testing.T) {
	disabled := matcherRule("disabled", "*", "*")
	disabled.Enabled = false

	m := NewMatcher()
	m.Rebuild([]*AlertRule{disabled, matcherRule("enabled", "*", "*")})

	matched := matchedIDs(m.Match(testEvent(nil)))
	assert.Equal(t, []string{"enabled"}, matched)
}

func TestMatcher_ConditionsApply(t *testing.T) {
	low := matcherRule("low-voltage", "pdu-monitor", "*")
	low.Conditions = []Condition{{Field: "voltage", Operator: OpLt, Value: NumberValue(200)}}

	high := matcherRule("high-voltage", "pdu-monitor", "*")
	high.Conditions = []Condition{{Field: "voltage", Operator: OpGt, Value: NumberValue(240)}}

	m := NewMatcher()
	m.Rebuild([]*AlertRule{low, high})

	event := testEvent(map[string]Value{"voltage": NumberValue(198)})
	assert.Equal(t, []string{"low-voltage"}, matchedIDs(m.Match(event)))
}

func TestMatcher_LiteralStarEventMatchesOnce(t *testing.T) {
	m := NewMatcher()
	m.Rebuild([]*AlertRule{
		matcherRule("catch-all", "*", "*"),
		matcherRule("any-type", "pdu-monitor", "*"),
		matcherRule("any-source", "*", "reading"),
	})

	// A literal "*" source collapses the source and wildcard lookup keys;
	// rules in the shared bucket must still match only once.
	starSource := Event{Source: "*", Type: "reading"}
	assert.ElementsMatch(t, []string{"catch-all", "any-source"}, matchedIDs(m.Match(starSource)))

	starType := Event{Source: "pdu-monitor", Type: "*"}
	assert.ElementsMatch(t, []string{"catch-all", "any-type"}, matchedIDs(m.Match(starType)))

	starBoth := Event{Source: "*", Type: "*"}
	assert.Equal(t, []string{"catch-all"}, matchedIDs(m.Match(starBoth)))
}

func TestMatcher_EmptyConditionListMatchesFilter(t *testing.T) {
	m := NewMatcher()
	m.Rebuild([]*AlertRule{matcherRule("bare", "pdu-monitor", "reading")})

	assert.Len(t, m.Match(testEvent(nil)), 1)
	assert.Empty(t, m.Match(Event{Source: "pdu-monitor", Type: "other"}))
}
