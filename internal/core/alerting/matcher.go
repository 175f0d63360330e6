package alerting

import "sync"

// Wildcard matches any source or event type in a rule's filter.
const Wildcard = "*"

// Matcher finds the enabled rules applicable to an event. Rules are indexed
// by their source/type filter pair so per-event cost is proportional to the
// rules that can match, not the total rule count.
type Matcher struct {
	mu    sync.RWMutex
	index map[string][]*AlertRule
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{index: make(map[string][]*AlertRule)}
}

func filterKey(source, eventType string) string {
	return source + "\x00" + eventType
}

// Rebuild replaces the index with the given rules. Disabled rules are left
// out so Match never has to filter them per event. The engine calls this
// under its own write lock whenever the rule set changes.
func (m *Matcher) Rebuild(rules []*AlertRule) {
	index := make(map[string][]*AlertRule, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		k := filterKey(r.Source, r.EventType)
		index[k] = append(index[k], r)
	}

	m.mu.Lock()
	m.index = index
	m.mu.Unlock()
}

// Match returns every enabled rule whose source/type filter applies to the
// event and whose conditions evaluate true. Each rule lives in exactly one
// index bucket. The four lookup keys collapse onto each other when the
// event's literal source or type is "*", so duplicates are skipped to keep
// every rule matched at most once per event.
func (m *Matcher) Match(event Event) []*AlertRule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := [4]string{
		filterKey(event.Source, event.Type),
		filterKey(event.Source, Wildcard),
		filterKey(Wildcard, event.Type),
		filterKey(Wildcard, Wildcard),
	}

	var matched []*AlertRule
	for i, k := range keys {
		seen := false
		for _, prev := range keys[:i] {
			if prev == k {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		for _, rule := range m.index[k] {
			if Evaluate(rule.Conditions, rule.ConditionLogic, event) {
				matched = append(matched, rule)
			}
		}
	}
	return matched
}
