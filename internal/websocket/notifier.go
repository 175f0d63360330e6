package websocket

import (
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
)

// Notifier adapts the hub to the engine's notification interface. The engine
// calls it only after durable persistence; delivery is best effort.
type Notifier struct {
	hub *Hub
}

// NewNotifier wraps a hub for the engine.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) AlertFired(alert *alerting.Alert) {
	n.hub.BroadcastToAll(AlertFiredMessage(alert))
}

func (n *Notifier) AlertEscalated(alert *alerting.Alert) {
	n.hub.BroadcastToAll(AlertEscalatedMessage(alert))
}

func (n *Notifier) IncidentCreated(incident *alerting.Incident) {
	n.hub.BroadcastToAll(IncidentCreatedMessage(incident))
}

func (n *Notifier) IncidentUpdated(incident *alerting.Incident) {
	n.hub.BroadcastToAll(IncidentUpdatedMessage(incident))
}
