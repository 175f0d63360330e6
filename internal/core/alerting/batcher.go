package alerting

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/metrics"
)

const batcherShards = 32

// BatcherConfig controls incident grouping.
type BatcherConfig struct {
	// BatchWindow is the sliding window: a batch stays open as long as the
	// gap between consecutive alerts is below it.
	BatchWindow time.Duration
	// MinAlertsForIncident is the threshold at which buffered alerts become
	// an incident.
	MinAlertsForIncident int
	// ImpactTemplate renders the incident impact text. Supports {{count}},
	// {{severity}}, {{window}} and {{sources}}.
	ImpactTemplate string
}

// batch is the open grouping state for one correlation key.
type batch struct {
	buffered    []*Alert
	incidentID  string
	startedAt   time.Time
	lastAlertAt time.Time
}

type batcherShard struct {
	mu      sync.Mutex
	batches map[string]*batch
}

// Batcher groups alerts arriving within a sliding window into incidents.
// State is sharded by correlation key: appends for one key are serialized,
// different keys proceed independently.
type Batcher struct {
	cfg      BatcherConfig
	shards   [batcherShards]*batcherShard
	store    Store
	notifier Notifier
	metrics  *metrics.Engine
	logger   *logrus.Logger
	nowFn    func() time.Time
}

// NewBatcher wires a batcher. notifier may be nil.
func NewBatcher(cfg BatcherConfig, store Store, notifier Notifier, m *metrics.Engine, logger *logrus.Logger) *Batcher {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	b := &Batcher{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		nowFn:    time.Now,
	}
	for i := range b.shards {
		b.shards[i] = &batcherShard{batches: make(map[string]*batch)}
	}
	return b
}

func (b *Batcher) shard(key string) *batcherShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return b.shards[h.Sum32()%batcherShards]
}

// CorrelationKey derives the grouping key for an alert under its rule's
// configured GroupKey (default: per rule).
func CorrelationKey(rule *AlertRule, alert *Alert) string {
	switch rule.GroupKey {
	case GroupBySource:
		return "source:" + alert.SourceEvent.Source
	case GroupBySeverity:
		return "severity:" + string(alert.Severity)
	case GroupByGlobal:
		return "global"
	default:
		return "rule:" + rule.ID
	}
}

// OnAlert feeds a persisted alert into the grouping state for its key.
// Below the threshold alerts are buffered; crossing it creates one incident
// atomically from everything buffered; afterwards alerts within the
// (continuously extended) window append to that incident. A persistence
// failure is returned to the caller with the in-memory state arranged so the
// next alert retries the same work; the batcher never invents an incident
// from alerts it failed to persist.
func (b *Batcher) OnAlert(ctx context.Context, rule *AlertRule, alert *Alert) error {
	key := CorrelationKey(rule, alert)
	sh := b.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur := sh.batches[key]
	if cur != nil && alert.CreatedAt.Sub(cur.lastAlertAt) > b.cfg.BatchWindow {
		// The burst ended before this alert arrived; the old batch is
		// closed so a straddling burst never reuses its incident.
		b.closeLocked(key, cur)
		cur = nil
	}
	if cur == nil {
		cur = &batch{startedAt: alert.CreatedAt}
		sh.batches[key] = cur
	}
	if alert.CreatedAt.After(cur.lastAlertAt) {
		cur.lastAlertAt = alert.CreatedAt
	}

	if cur.incidentID != "" {
		return b.appendLocked(ctx, cur, alert)
	}

	cur.buffered = append(cur.buffered, alert)
	if len(cur.buffered) < b.cfg.MinAlertsForIncident {
		return nil
	}
	return b.createLocked(ctx, key, cur)
}

// appendLocked adds an alert to the batch's existing incident.
func (b *Batcher) appendLocked(ctx context.Context, cur *batch, alert *Alert) error {
	now := b.nowFn()
	var updated *Incident
	err := b.store.UpdateIncident(ctx, cur.incidentID, func(inc *Incident) error {
		alert.IncidentID = inc.ID
		inc.Alerts = append(inc.Alerts, alert)
		inc.AlertCount = len(inc.Alerts)
		inc.Severity = MaxSeverity(inc.Alerts)
		inc.UpdatedAt = now
		cp := *inc
		updated = &cp
		return nil
	})
	if err != nil {
		alert.IncidentID = ""
		return fmt.Errorf("append alert %s to incident %s: %w", alert.ID, cur.incidentID, err)
	}

	if b.metrics != nil {
		b.metrics.IncidentAppends.Inc()
	}
	b.notifier.IncidentUpdated(updated)
	return nil
}

// createLocked turns the buffered alerts into one incident.
func (b *Batcher) createLocked(ctx context.Context, key string, cur *batch) error {
	now := b.nowFn()
	alerts := append([]*Alert(nil), cur.buffered...)
	inc := &Incident{
		ID:         uuid.New().String(),
		Title:      incidentTitle(key, alerts),
		Severity:   MaxSeverity(alerts),
		Status:     StatusActive,
		Impact:     b.renderImpact(alerts),
		AlertCount: len(alerts),
		CreatedAt:  now,
		UpdatedAt:  now,
		Alerts:     alerts,
	}
	for _, a := range alerts {
		a.IncidentID = inc.ID
	}

	if err := b.store.CreateIncident(ctx, inc); err != nil {
		// Keep the buffer intact: the next alert for this key re-crosses
		// the threshold and retries the creation.
		for _, a := range alerts {
			a.IncidentID = ""
		}
		return fmt.Errorf("create incident for key %s: %w", key, err)
	}

	cur.incidentID = inc.ID
	cur.buffered = nil

	if b.metrics != nil {
		b.metrics.IncidentsCreated.Inc()
	}
	b.logger.WithFields(logrus.Fields{
		"incident_id": inc.ID,
		"key":         key,
		"alert_count": inc.AlertCount,
		"severity":    inc.Severity,
	}).Info("Incident created")
	b.notifier.IncidentCreated(inc)
	return nil
}

// closeLocked drops an expired batch. A closed batch that never crossed the
// threshold discards its buffer; the alerts stay individually queryable.
func (b *Batcher) closeLocked(key string, cur *batch) {
	sh := b.shard(key)
	delete(sh.batches, key)
	if cur.incidentID == "" && len(cur.buffered) > 0 {
		b.logger.WithFields(logrus.Fields{
			"key":             key,
			"discarded_count": len(cur.buffered),
		}).Debug("Batch expired below incident threshold")
	}
}

// Run expires idle batches until ctx is done. Expiry is also applied lazily
// in OnAlert, so the janitor only bounds how long dead state lingers.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.expire(b.nowFn())
		}
	}
}

func (b *Batcher) expire(now time.Time) {
	for _, sh := range b.shards {
		sh.mu.Lock()
		for key, cur := range sh.batches {
			if now.Sub(cur.lastAlertAt) > b.cfg.BatchWindow {
				b.closeLocked(key, cur)
			}
		}
		sh.mu.Unlock()
	}
}

// OpenBatches reports how many correlation keys currently hold open state.
func (b *Batcher) OpenBatches() int {
	total := 0
	for _, sh := range b.shards {
		sh.mu.Lock()
		total += len(sh.batches)
		sh.mu.Unlock()
	}
	return total
}

func incidentTitle(key string, alerts []*Alert) string {
	subject := strings.TrimPrefix(key, "rule:")
	if len(alerts) > 0 {
		subject = alerts[0].Message
	}
	return fmt.Sprintf("%s (+%d related)", subject, len(alerts)-1)
}

func (b *Batcher) renderImpact(alerts []*Alert) string {
	tpl := b.cfg.ImpactTemplate
	if tpl == "" {
		tpl = "{{count}} correlated alerts from {{sources}}"
	}

	seen := make(map[string]bool)
	var sources []string
	for _, a := range alerts {
		if !seen[a.SourceEvent.Source] {
			seen[a.SourceEvent.Source] = true
			sources = append(sources, a.SourceEvent.Source)
		}
	}

	r := strings.NewReplacer(
		"{{count}}", strconv.Itoa(len(alerts)),
		"{{severity}}", string(MaxSeverity(alerts)),
		"{{window}}", b.cfg.BatchWindow.String(),
		"{{sources}}", strings.Join(sources, ", "),
	)
	return r.Replace(tpl)
}
