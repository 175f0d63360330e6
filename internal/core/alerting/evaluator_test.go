package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testEvent(fields map[string]Value) Event {
	return Event{
		Source:    "pdu-monitor",
		Type:      "reading",
		Timestamp: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		Fields:    fields,
	}
}

func TestEvaluate_Operators(t *testing.T) {
	event := testEvent(map[string]Value{
		"voltage": NumberValue(198),
		"status":  StringValue("degraded"),
		"online":  BoolValue(true),
		"reading": StringValue("42.5"),
	})

	tests := []struct {
		name      string
		condition Condition
		expected  bool
	}{
		{"eq number match", Condition{Field: "voltage", Operator: OpEq, Value: NumberValue(198)}, true},
		{"eq number mismatch", Condition{Field: "voltage", Operator: OpEq, Value: NumberValue(199)}, false},
		{"eq string match", Condition{Field: "status", Operator: OpEq, Value: StringValue("degraded")}, true},
		{"eq bool against string form", Condition{Field: "online", Operator: OpEq, Value: StringValue("true")}, true},
		{"ne match", Condition{Field: "status", Operator: OpNe, Value: StringValue("ok")}, true},
		{"ne mismatch", Condition{Field: "voltage", Operator: OpNe, Value: NumberValue(198)}, false},
		{"gt true", Condition{Field: "voltage", Operator: OpGt, Value: NumberValue(190)}, true},
		{"gt false on equal", Condition{Field: "voltage", Operator: OpGt, Value: NumberValue(198)}, false},
		{"gte true on equal", Condition{Field: "voltage", Operator: OpGte, Value: NumberValue(198)}, true},
		{"lt true", Condition{Field: "voltage", Operator: OpLt, Value: NumberValue(200)}, true},
		{"lte true on equal", Condition{Field: "voltage", Operator: OpLte, Value: NumberValue(198)}, true},
		{"numeric coercion from string field", Condition{Field: "reading", Operator: OpGt, Value: NumberValue(40)}, true},
		{"gt non-numeric field is false", Condition{Field: "status", Operator: OpGt, Value: NumberValue(1)}, false},
		{"gt non-numeric value is false", Condition{Field: "voltage", Operator: OpGt, Value: StringValue("high")}, false},
		{"gt bool never coerces", Condition{Field: "online", Operator: OpGt, Value: NumberValue(0)}, false},
		{"contains true", Condition{Field: "status", Operator: OpContains, Value: StringValue("grad")}, true},
		{"contains false", Condition{Field: "status", Operator: OpContains, Value: StringValue("ok")}, false},
		{"contains coerces number to string", Condition{Field: "voltage", Operator: OpContains, Value: StringValue("98")}, true},
		{"not_contains true", Condition{Field: "status", Operator: OpNotContains, Value: StringValue("ok")}, true},
		{"not_contains false", Condition{Field: "status", Operator: OpNotContains, Value: StringValue("degraded")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate([]Condition{tt.condition}, LogicAnd, event)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluate_MissingFieldIsFalse(t *testing.T) {
	event := testEvent(map[string]Value{"voltage": NumberValue(198)})

	for _, op := range []Operator{OpEq, OpNe, OpGt, OpLt, OpGte, OpLte, OpContains, OpNotContains} {
		t.Run(string(op), func(t *testing.T) {
			cond := Condition{Field: "missing", Operator: op, Value: NumberValue(1)}
			assert.False(t, Evaluate([]Condition{cond}, LogicAnd, event))
		})
	}
}

func TestEvaluate_EmptyConditionsMatch(t *testing.T) {
	assert.True(t, Evaluate(nil, LogicAnd, testEvent(nil)))
	assert.True(t, Evaluate([]Condition{}, LogicOr, testEvent(nil)))
}

func TestEvaluate_Logic(t *testing.T) {
	event := testEvent(map[string]Value{
		"voltage": NumberValue(198),
		"status":  StringValue("ok"),
	})

	pass := Condition{Field: "voltage", Operator: OpLt, Value: NumberValue(200)}
	fail := Condition{Field: "status", Operator: OpEq, Value: StringValue("degraded")}

	tests := []struct {
		name       string
		conditions []Condition
		logic      ConditionLogic
		expected   bool
	}{
		{"AND all pass", []Condition{pass, pass}, LogicAnd, true},
		{"AND one fails", []Condition{pass, fail}, LogicAnd, false},
		{"OR one passes", []Condition{fail, pass}, LogicOr, true},
		{"OR all fail", []Condition{fail, fail}, LogicOr, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.conditions, tt.logic, event))
		})
	}
}

func TestValue_JSONRoundTrip(t *testing.T) {
	var v Value
	assert.NoError(t, v.UnmarshalJSON([]byte(`198.5`)))
	assert.Equal(t, ValueNumber, v.Kind)
	assert.Equal(t, 198.5, v.Num)

	assert.NoError(t, v.UnmarshalJSON([]byte(`"degraded"`)))
	assert.Equal(t, ValueString, v.Kind)

	assert.NoError(t, v.UnmarshalJSON([]byte(`true`)))
	assert.Equal(t, ValueBool, v.Kind)

	assert.Error(t, v.UnmarshalJSON([]byte(`{"nested": 1}`)))
	assert.Error(t, v.UnmarshalJSON([]byte(`[1,2]`)))
}
