package alerting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk shape of a seed rules file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name"`
	Source          string          `yaml:"source"`
	EventType       string          `yaml:"event_type"`
	Severity        string          `yaml:"severity"`
	Conditions      []conditionSpec `yaml:"conditions"`
	ConditionLogic  string          `yaml:"condition_logic"`
	CooldownSeconds int             `yaml:"cooldown_seconds"`
	TimeWindow      *TimeWindow     `yaml:"time_window"`
	RateLimit       *rateLimitSpec  `yaml:"rate_limit"`
	Escalation      *escalationSpec `yaml:"escalation"`
	GroupKey        string          `yaml:"group_key"`
	Message         string          `yaml:"message"`
	Enabled         *bool           `yaml:"enabled"`
}

type conditionSpec struct {
	Field    string      `yaml:"field"`
	Operator string      `yaml:"operator"`
	Value    interface{} `yaml:"value"`
}

type rateLimitSpec struct {
	Enabled       bool `yaml:"enabled"`
	Count         int  `yaml:"count"`
	WindowSeconds int  `yaml:"window_seconds"`
}

type escalationSpec struct {
	Enabled      bool   `yaml:"enabled"`
	AfterMinutes int    `yaml:"after_minutes"`
	ToSeverity   string `yaml:"to_severity"`
}

// ParseRulesYAML parses a seed rules document and validates every rule, so
// a malformed file is rejected before anything reaches the engine.
func ParseRulesYAML(data []byte) ([]*AlertRule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	rules := make([]*AlertRule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		rule, err := spec.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Name, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRulesFile reads and parses a seed rules file.
func LoadRulesFile(path string) ([]*AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRulesYAML(data)
}

func (spec ruleSpec) toRule() (*AlertRule, error) {
	logic := ConditionLogic(spec.ConditionLogic)
	if logic == "" {
		logic = LogicAnd
	}

	conditions := make([]Condition, 0, len(spec.Conditions))
	for _, c := range spec.Conditions {
		value, err := yamlValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("condition on %q: %w", c.Field, err)
		}
		conditions = append(conditions, Condition{
			Field:    c.Field,
			Operator: Operator(c.Operator),
			Value:    value,
		})
	}

	rule := &AlertRule{
		ID:              spec.ID,
		Name:            spec.Name,
		Source:          spec.Source,
		EventType:       spec.EventType,
		Severity:        Severity(spec.Severity),
		Conditions:      conditions,
		ConditionLogic:  logic,
		CooldownSeconds: spec.CooldownSeconds,
		TimeWindow:      spec.TimeWindow,
		GroupKey:        GroupKey(spec.GroupKey),
		Message:         spec.Message,
		Enabled:         spec.Enabled == nil || *spec.Enabled,
	}
	if spec.RateLimit != nil {
		rule.RateLimit = &RateLimit{
			Enabled:       spec.RateLimit.Enabled,
			Count:         spec.RateLimit.Count,
			WindowSeconds: spec.RateLimit.WindowSeconds,
		}
	}
	if spec.Escalation != nil {
		rule.Escalation = &Escalation{
			Enabled:      spec.Escalation.Enabled,
			AfterMinutes: spec.Escalation.AfterMinutes,
			ToSeverity:   Severity(spec.Escalation.ToSeverity),
		}
	}
	return rule, nil
}

// yamlValue maps a decoded YAML scalar onto the Value union.
func yamlValue(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case string:
		return StringValue(v), nil
	case bool:
		return BoolValue(v), nil
	case int:
		return NumberValue(float64(v)), nil
	case int64:
		return NumberValue(float64(v)), nil
	case float64:
		return NumberValue(v), nil
	default:
		return Value{}, fmt.Errorf("value must be a string, number or boolean, got %T", raw)
	}
}
