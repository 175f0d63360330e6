package alerting

import "strings"

// Evaluate runs a rule's conditions against an event. It is pure and
// side-effect-free: an empty condition list matches unconditionally, a
// missing field evaluates its condition to false, and type mismatches never
// raise errors. AND requires every condition to hold, OR at least one.
func Evaluate(conditions []Condition, logic ConditionLogic, event Event) bool {
	if len(conditions) == 0 {
		return true
	}

	for _, c := range conditions {
		matched := evaluateCondition(c, event)
		switch logic {
		case LogicOr:
			if matched {
				return true
			}
		default: // AND
			if !matched {
				return false
			}
		}
	}

	return logic != LogicOr
}

func evaluateCondition(c Condition, event Event) bool {
	v, ok := event.Fields[c.Field]
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEq:
		return v.Equal(c.Value)
	case OpNe:
		return !v.Equal(c.Value)
	case OpGt, OpLt, OpGte, OpLte:
		left, okL := v.Number()
		right, okR := c.Value.Number()
		if !okL || !okR {
			return false
		}
		switch c.Operator {
		case OpGt:
			return left > right
		case OpLt:
			return left < right
		case OpGte:
			return left >= right
		default:
			return left <= right
		}
	case OpContains:
		return strings.Contains(v.String(), c.Value.String())
	case OpNotContains:
		return !strings.Contains(v.String(), c.Value.String())
	}

	// Unknown operators are rejected at rule save; if one slips through,
	// the condition fails closed.
	return false
}
