package alerting

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/metrics"
)

// Config contains engine configuration.
type Config struct {
	Workers              int           `json:"workers"`
	QueueSize            int           `json:"queue_size"`
	BatchWindow          time.Duration `json:"batch_window"`
	MinAlertsForIncident int           `json:"min_alerts_for_incident"`
	SweepInterval        time.Duration `json:"sweep_interval"`
	ImpactTemplate       string        `json:"impact_template"`
	Sources              []string      `json:"sources"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Workers:              runtime.NumCPU(),
		QueueSize:            1024,
		BatchWindow:          30 * time.Second,
		MinAlertsForIncident: 5,
		SweepInterval:        30 * time.Second,
	}
}

// Statistics contains engine counters for the stats endpoint.
type Statistics struct {
	TotalRules      int   `json:"total_rules"`
	EnabledRules    int   `json:"enabled_rules"`
	EventsProcessed int64 `json:"events_processed"`
	AlertsEmitted   int64 `json:"alerts_emitted"`
	GateRejections  int64 `json:"gate_rejections"`
	OpenBatches     int   `json:"open_batches"`
	QueueLength     int   `json:"queue_length"`
}

// Engine is the alert rule engine: it matches events against rules, gates
// the matches, emits alerts and feeds them to the incident batcher, and runs
// the escalation sweep. It is an explicit constructed instance; all mutable
// state lives on it.
type Engine struct {
	cfg Config

	mu    sync.RWMutex
	rules map[string]*AlertRule

	matcher *Matcher
	gate    *Gate
	emitter *Emitter
	batcher *Batcher
	sweeper *Sweeper
	store   Store

	queue   chan Event
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool

	sourcesMu sync.Mutex
	sources   map[string]bool

	statsMu sync.Mutex
	stats   Statistics

	logger  *logrus.Logger
	metrics *metrics.Engine

	// nowFn is the wall clock; tests replace it.
	nowFn func() time.Time
}

// NewEngine constructs an engine over a store. notifier and m may be nil.
func NewEngine(cfg Config, store Store, notifier Notifier, m *metrics.Engine, logger *logrus.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MinAlertsForIncident <= 0 {
		cfg.MinAlertsForIncident = 1
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = 30 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	e := &Engine{
		cfg:     cfg,
		rules:   make(map[string]*AlertRule),
		matcher: NewMatcher(),
		gate:    NewGate(),
		store:   store,
		queue:   make(chan Event, cfg.QueueSize),
		sources: make(map[string]bool),
		logger:  logger,
		metrics: m,
		nowFn:   time.Now,
	}
	e.emitter = NewEmitter(store, notifier, m, logger)
	e.batcher = NewBatcher(BatcherConfig{
		BatchWindow:          cfg.BatchWindow,
		MinAlertsForIncident: cfg.MinAlertsForIncident,
		ImpactTemplate:       cfg.ImpactTemplate,
	}, store, notifier, m, logger)
	e.sweeper = NewSweeper(store, e, notifier, m, logger)
	return e
}

// Start launches the worker pool, the batch janitor and the escalation
// sweep schedule.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("alert engine is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for i := 0; i < e.cfg.Workers; i++ {
		go e.worker(runCtx)
	}
	go e.batcher.Run(runCtx)

	e.cron = cron.New()
	if _, err := e.cron.AddFunc(fmt.Sprintf("@every %s", e.cfg.SweepInterval), func() {
		e.sweeper.Sweep(runCtx, e.nowFn())
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule escalation sweep: %w", err)
	}
	e.cron.Start()

	e.running = true
	e.logger.WithFields(logrus.Fields{
		"workers":        e.cfg.Workers,
		"sweep_interval": e.cfg.SweepInterval,
	}).Info("Alert engine started")
	return nil
}

// Stop halts the sweep schedule and the workers.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	if e.cron != nil {
		e.cron.Stop()
	}
	e.cancel()
	e.running = false
	e.logger.Info("Alert engine stopped")
}

func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.queue:
			if err := e.ProcessEvent(ctx, event); err != nil {
				e.logger.WithError(err).WithFields(logrus.Fields{
					"source": event.Source,
					"type":   event.Type,
				}).Error("Event processing failed")
			}
		}
	}
}

// HandleEvent enqueues an event for asynchronous processing. It fails fast
// when the queue is full rather than blocking producers.
func (e *Engine) HandleEvent(event Event) error {
	select {
	case e.queue <- event:
		return nil
	default:
		return fmt.Errorf("event queue full, dropped %s/%s", event.Source, event.Type)
	}
}

// ProcessEvent runs the full pipeline synchronously: match, gate, emit,
// batch. One rule's failure never prevents the others from being processed;
// persistence failures are joined into the returned (retryable) error.
func (e *Engine) ProcessEvent(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = e.nowFn()
	}
	e.recordSource(event.Source)
	if e.metrics != nil {
		e.metrics.EventsTotal.Inc()
	}
	e.statsMu.Lock()
	e.stats.EventsProcessed++
	e.statsMu.Unlock()

	matched := e.matcher.Match(event)
	if len(matched) == 0 {
		return nil
	}
	if e.metrics != nil {
		e.metrics.MatchesTotal.Add(float64(len(matched)))
	}

	now := e.nowFn()
	var errs []error
	for _, rule := range matched {
		if err := e.fireRule(ctx, rule, event, now); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) fireRule(ctx context.Context, rule *AlertRule, event Event, now time.Time) error {
	decision := e.gate.TryFire(rule, now)
	if !decision.Allowed {
		if e.metrics != nil {
			e.metrics.GateRejections.WithLabelValues(string(decision.Reason)).Inc()
		}
		e.statsMu.Lock()
		e.stats.GateRejections++
		e.statsMu.Unlock()
		e.logger.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"reason":  decision.Reason,
		}).Debug("Rule match gated")
		return nil
	}

	alert, err := e.emitter.Emit(ctx, rule, event, now)
	if err != nil {
		return err
	}
	e.statsMu.Lock()
	e.stats.AlertsEmitted++
	e.statsMu.Unlock()

	return e.batcher.OnAlert(ctx, rule, alert)
}

// Sweep runs one escalation pass immediately. The cron schedule calls this
// with the wall clock; tests call it with a fixed instant.
func (e *Engine) Sweep(ctx context.Context, now time.Time) {
	e.sweeper.Sweep(ctx, now)
}

// AddRule validates and installs a rule. Missing ids are generated.
func (e *Engine) AddRule(rule *AlertRule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	now := e.nowFn()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s already exists", rule.ID)
	}
	e.rules[rule.ID] = rule.Clone()
	e.rebuildLocked()

	e.logger.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"rule_name": rule.Name,
	}).Info("Alert rule added")
	return nil
}

// UpdateRule atomically replaces an existing rule; there are no
// partial-field updates.
func (e *Engine) UpdateRule(rule *AlertRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule id is required for update")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	old, exists := e.rules[rule.ID]
	if !exists {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrNotFound)
	}
	rule.CreatedAt = old.CreatedAt
	rule.UpdatedAt = e.nowFn()
	e.rules[rule.ID] = rule.Clone()
	e.rebuildLocked()

	e.logger.WithField("rule_id", rule.ID).Info("Alert rule updated")
	return nil
}

// RemoveRule deletes a rule and its gate state.
func (e *Engine) RemoveRule(ruleID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rules[ruleID]; !exists {
		return fmt.Errorf("rule %s: %w", ruleID, ErrNotFound)
	}
	delete(e.rules, ruleID)
	e.gate.Drop(ruleID)
	e.rebuildLocked()

	e.logger.WithField("rule_id", ruleID).Info("Alert rule removed")
	return nil
}

// SetRuleEnabled toggles a rule.
func (e *Engine) SetRuleEnabled(ruleID string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rule, exists := e.rules[ruleID]
	if !exists {
		return fmt.Errorf("rule %s: %w", ruleID, ErrNotFound)
	}
	if rule.Enabled == enabled {
		return nil
	}
	// Replace rather than mutate: the matcher may still be reading the old
	// clone on the hot path.
	updated := rule.Clone()
	updated.Enabled = enabled
	updated.UpdatedAt = e.nowFn()
	e.rules[ruleID] = updated
	e.rebuildLocked()

	e.logger.WithFields(logrus.Fields{
		"rule_id": ruleID,
		"enabled": enabled,
	}).Info("Alert rule toggled")
	return nil
}

// GetRule returns a copy of one rule.
func (e *Engine) GetRule(ruleID string) (*AlertRule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, exists := e.rules[ruleID]
	if !exists {
		return nil, fmt.Errorf("rule %s: %w", ruleID, ErrNotFound)
	}
	return rule.Clone(), nil
}

// RuleByID implements RuleSource for the sweeper.
func (e *Engine) RuleByID(ruleID string) (*AlertRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rule, exists := e.rules[ruleID]
	if !exists {
		return nil, false
	}
	return rule.Clone(), true
}

// ListRules returns copies of all rules, ordered by name.
func (e *Engine) ListRules() []*AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rules := make([]*AlertRule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, r.Clone())
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}

// KnownSources enumerates valid event sources for the configuration UI:
// statically configured sources, rule filters and sources seen on events.
func (e *Engine) KnownSources() []string {
	set := make(map[string]bool)
	for _, s := range e.cfg.Sources {
		set[s] = true
	}
	e.mu.RLock()
	for _, r := range e.rules {
		if r.Source != Wildcard {
			set[r.Source] = true
		}
	}
	e.mu.RUnlock()
	e.sourcesMu.Lock()
	for s := range e.sources {
		set[s] = true
	}
	e.sourcesMu.Unlock()

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// GetStatistics snapshots the engine counters.
func (e *Engine) GetStatistics() Statistics {
	e.statsMu.Lock()
	stats := e.stats
	e.statsMu.Unlock()

	e.mu.RLock()
	stats.TotalRules = len(e.rules)
	for _, r := range e.rules {
		if r.Enabled {
			stats.EnabledRules++
		}
	}
	e.mu.RUnlock()

	stats.OpenBatches = e.batcher.OpenBatches()
	stats.QueueLength = len(e.queue)
	return stats
}

// rebuildLocked refreshes the matcher index; callers hold e.mu.
func (e *Engine) rebuildLocked() {
	rules := make([]*AlertRule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, r)
	}
	e.matcher.Rebuild(rules)
}

func (e *Engine) recordSource(source string) {
	if source == "" {
		return
	}
	e.sourcesMu.Lock()
	e.sources[source] = true
	e.sourcesMu.Unlock()
}
