package alerting

import (
	"sync"
	"time"
)

// GateReason explains why the gate rejected a rule match.
type GateReason string

const (
	ReasonOutsideWindow GateReason = "outside_window"
	ReasonCooldown      GateReason = "cooldown"
	ReasonRateLimited   GateReason = "rate_limited"
)

// GateDecision is the outcome of a TryFire check.
type GateDecision struct {
	Allowed bool
	Reason  GateReason
}

// gateState is the per-rule temporal state. It is owned exclusively by the
// Gate and never leaves this package.
type gateState struct {
	mu          sync.Mutex
	lastFiredAt time.Time
	fireTimes   []time.Time
}

// Gate decides whether a rule that matched is allowed to fire now. The
// check-and-record for a given rule id is atomic: two events matching the
// same rule in the same instant cannot both pass the cooldown or rate-limit
// check. Different rules proceed independently.
type Gate struct {
	mu     sync.Mutex
	states map[string]*gateState
}

// NewGate returns an empty gate controller.
func NewGate() *Gate {
	return &Gate{states: make(map[string]*gateState)}
}

func (g *Gate) state(ruleID string) *gateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.states[ruleID]
	if !ok {
		st = &gateState{}
		g.states[ruleID] = st
	}
	return st
}

// Drop discards the gate state for a deleted rule.
func (g *Gate) Drop(ruleID string) {
	g.mu.Lock()
	delete(g.states, ruleID)
	g.mu.Unlock()
}

// TryFire checks, in order: time window, cooldown, rate limit. If all pass
// it records now into the rule's state and allows the fire.
func (g *Gate) TryFire(rule *AlertRule, now time.Time) GateDecision {
	st := g.state(rule.ID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if tw := rule.TimeWindow; tw != nil && tw.Enabled && !tw.Contains(now) {
		return GateDecision{Reason: ReasonOutsideWindow}
	}

	if rule.CooldownSeconds > 0 && !st.lastFiredAt.IsZero() {
		cooldown := time.Duration(rule.CooldownSeconds) * time.Second
		if now.Sub(st.lastFiredAt) < cooldown {
			return GateDecision{Reason: ReasonCooldown}
		}
	}

	if rl := rule.RateLimit; rl != nil && rl.Enabled {
		window := time.Duration(rl.WindowSeconds) * time.Second
		kept := st.fireTimes[:0]
		for _, t := range st.fireTimes {
			if now.Sub(t) < window {
				kept = append(kept, t)
			}
		}
		st.fireTimes = kept
		if len(st.fireTimes) >= rl.Count {
			return GateDecision{Reason: ReasonRateLimited}
		}
		st.fireTimes = append(st.fireTimes, now)
	}

	st.lastFiredAt = now
	return GateDecision{Allowed: true}
}
