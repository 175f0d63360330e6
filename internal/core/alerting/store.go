package alerting

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when an alert or incident does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for alerts and incidents. The mutate
// callbacks are the store's atomic update primitive: the store must apply
// them under whatever contention control it has (a transaction, a lock) so
// that concurrent updaters never race read-modify-write.
type Store interface {
	// SaveAlert durably persists a new alert. The emitter will not report
	// success to its caller until this returns nil.
	SaveAlert(ctx context.Context, alert *Alert) error

	// UpdateAlert atomically applies mutate to the stored alert.
	UpdateAlert(ctx context.Context, id string, mutate func(*Alert) error) error

	// GetAlert returns one alert or ErrNotFound.
	GetAlert(ctx context.Context, id string) (*Alert, error)

	// ListAlerts returns alerts, newest first.
	ListAlerts(ctx context.Context, limit int) ([]*Alert, error)

	// ListOpenAlerts returns unacknowledged, not-yet-escalated alerts for
	// the escalation sweep.
	ListOpenAlerts(ctx context.Context) ([]*Alert, error)

	// CreateIncident durably persists a new incident together with the
	// incident membership of its alerts.
	CreateIncident(ctx context.Context, incident *Incident) error

	// UpdateIncident atomically applies mutate to the stored incident with
	// its alerts loaded. Alerts appended to Incident.Alerts by mutate have
	// their membership persisted as part of the same update.
	UpdateIncident(ctx context.Context, id string, mutate func(*Incident) error) error

	// GetIncident returns one incident with its alerts or ErrNotFound.
	GetIncident(ctx context.Context, id string) (*Incident, error)

	// ListIncidents returns incidents, newest first, optionally filtered
	// by status ("" means all).
	ListIncidents(ctx context.Context, status IncidentStatus) ([]*Incident, error)
}

// Notifier publishes engine output downstream (the WebSocket hub in the
// server wiring). Publishing happens only after durable persistence and is
// fire-and-forget: a slow or absent consumer never blocks the hot path.
type Notifier interface {
	AlertFired(alert *Alert)
	AlertEscalated(alert *Alert)
	IncidentCreated(incident *Incident)
	IncidentUpdated(incident *Incident)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) AlertFired(*Alert)        {}
func (NopNotifier) AlertEscalated(*Alert)    {}
func (NopNotifier) IncidentCreated(*Incident) {}
func (NopNotifier) IncidentUpdated(*Incident) {}
