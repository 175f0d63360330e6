package alerting

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateRule(id string) *AlertRule {
	return &AlertRule{
		ID:             id,
		Name:           "gate test",
		Source:         "*",
		EventType:      "*",
		Severity:       SeverityWarning,
		ConditionLogic: LogicAnd,
		Enabled:        true,
	}
}

func TestGate_Cooldown(t *testing.T) {
	gate := NewGate()
	rule := gateRule("r1")
	rule.CooldownSeconds = 60

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	first := gate.TryFire(rule, base)
	assert.True(t, first.Allowed)

	second := gate.TryFire(rule, base.Add(time.Second))
	assert.False(t, second.Allowed)
	assert.Equal(t, ReasonCooldown, second.Reason)

	third := gate.TryFire(rule, base.Add(61*time.Second))
	assert.True(t, third.Allowed)
}

func TestGate_RateLimit(t *testing.T) {
	gate := NewGate()
	rule := gateRule("r1")
	rule.RateLimit = &RateLimit{Enabled: true, Count: 3, WindowSeconds: 60}

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	// Exactly Count fires pass inside the window.
	passed := 0
	for i := 0; i < 4; i++ {
		if gate.TryFire(rule, base.Add(time.Duration(i)*time.Second)).Allowed {
			passed++
		}
	}
	assert.Equal(t, 3, passed)

	rejected := gate.TryFire(rule, base.Add(10*time.Second))
	assert.False(t, rejected.Allowed)
	assert.Equal(t, ReasonRateLimited, rejected.Reason)

	// The window slides: once the oldest fire ages out, capacity returns.
	later := gate.TryFire(rule, base.Add(61*time.Second))
	assert.True(t, later.Allowed)
}

func TestGate_TimeWindow(t *testing.T) {
	// Tuesday 2025-06-10.
	tuesdayNoon := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tuesdayNight := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	sundayNoon := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		window  TimeWindow
		now     time.Time
		allowed bool
	}{
		{
			name:    "inside business hours",
			window:  TimeWindow{Enabled: true, Start: "09:00", End: "17:00"},
			now:     tuesdayNoon,
			allowed: true,
		},
		{
			name:    "outside business hours",
			window:  TimeWindow{Enabled: true, Start: "09:00", End: "17:00"},
			now:     tuesdayNight,
			allowed: false,
		},
		{
			name:    "overnight window wraps midnight",
			window:  TimeWindow{Enabled: true, Start: "22:00", End: "06:00"},
			now:     tuesdayNight,
			allowed: true,
		},
		{
			name:    "overnight window closed at noon",
			window:  TimeWindow{Enabled: true, Start: "22:00", End: "06:00"},
			now:     tuesdayNoon,
			allowed: false,
		},
		{
			name:    "weekday filter matches tuesday",
			window:  TimeWindow{Enabled: true, Start: "00:00", End: "23:59", Days: []int{1, 2, 3, 4, 5}},
			now:     tuesdayNoon,
			allowed: true,
		},
		{
			name:    "weekday filter rejects sunday",
			window:  TimeWindow{Enabled: true, Start: "00:00", End: "23:59", Days: []int{1, 2, 3, 4, 5}},
			now:     sundayNoon,
			allowed: false,
		},
		{
			name:    "timezone shifts the window",
			window:  TimeWindow{Enabled: true, Start: "09:00", End: "17:00", Timezone: "America/New_York"},
			now:     time.Date(2025, 6, 10, 13, 30, 0, 0, time.UTC), // 09:30 in New York
			allowed: true,
		},
		{
			name:    "timezone excludes utc morning",
			window:  TimeWindow{Enabled: true, Start: "09:00", End: "17:00", Timezone: "America/New_York"},
			now:     time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC), // 05:30 in New York
			allowed: false,
		},
		{
			name:    "disabled window never gates",
			window:  TimeWindow{Enabled: false, Start: "09:00", End: "17:00"},
			now:     tuesdayNight,
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate()
			rule := gateRule("r1")
			rule.TimeWindow = &tt.window

			decision := gate.TryFire(rule, tt.now)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, ReasonOutsideWindow, decision.Reason)
			}
		})
	}
}

func TestGate_CheckOrder(t *testing.T) {
	// The window check comes first: a rejected window never consumes
	// cooldown or rate-limit budget.
	gate := NewGate()
	rule := gateRule("r1")
	rule.CooldownSeconds = 60
	rule.TimeWindow = &TimeWindow{Enabled: true, Start: "09:00", End: "17:00"}

	night := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	decision := gate.TryFire(rule, night)
	require.False(t, decision.Allowed)
	assert.Equal(t, ReasonOutsideWindow, decision.Reason)

	noon := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	assert.True(t, gate.TryFire(rule, noon).Allowed)
}

func TestGate_ConcurrentFiresPassOnce(t *testing.T) {
	gate := NewGate()
	rule := gateRule("r1")
	rule.CooldownSeconds = 60

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.TryFire(rule, now).Allowed {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, passed)
}

func TestGate_RulesAreIndependent(t *testing.T) {
	gate := NewGate()
	r1 := gateRule("r1")
	r1.CooldownSeconds = 60
	r2 := gateRule("r2")
	r2.CooldownSeconds = 60

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, gate.TryFire(r1, now).Allowed)
	assert.True(t, gate.TryFire(r2, now).Allowed)
}

func TestGate_DropResetsState(t *testing.T) {
	gate := NewGate()
	rule := gateRule("r1")
	rule.CooldownSeconds = 60

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.True(t, gate.TryFire(rule, now).Allowed)
	require.False(t, gate.TryFire(rule, now.Add(time.Second)).Allowed)

	gate.Drop(rule.ID)
	assert.True(t, gate.TryFire(rule, now.Add(2*time.Second)).Allowed)
}
