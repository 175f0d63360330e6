package websocket

import (
	"encoding/json"
	"time"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
)

// Message types for WebSocket communication
const (
	MessageTypeAlertFired      = "alert_fired"
	MessageTypeAlertEscalated  = "alert_escalated"
	MessageTypeIncidentCreated = "incident_created"
	MessageTypeIncidentUpdated = "incident_updated"
	MessageTypeSystemStatus    = "system_status"
)

// Topics clients can subscribe to. A client with no subscriptions receives
// everything.
const (
	TopicAlerts    = "alerts"
	TopicIncidents = "incidents"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// Topic maps the message type onto a subscription topic.
func (m Message) Topic() string {
	switch m.Type {
	case MessageTypeAlertFired, MessageTypeAlertEscalated:
		return TopicAlerts
	case MessageTypeIncidentCreated, MessageTypeIncidentUpdated:
		return TopicIncidents
	}
	return ""
}

// AlertFiredMessage creates a message for a newly emitted alert.
func AlertFiredMessage(alert *alerting.Alert) Message {
	return Message{
		Type: MessageTypeAlertFired,
		Data: map[string]interface{}{
			"alert": alert,
		},
	}
}

// AlertEscalatedMessage creates a message for an escalated alert.
func AlertEscalatedMessage(alert *alerting.Alert) Message {
	return Message{
		Type: MessageTypeAlertEscalated,
		Data: map[string]interface{}{
			"alert": alert,
		},
	}
}

// IncidentCreatedMessage creates a message for a new incident.
func IncidentCreatedMessage(incident *alerting.Incident) Message {
	return Message{
		Type: MessageTypeIncidentCreated,
		Data: map[string]interface{}{
			"incident": incident,
		},
	}
}

// IncidentUpdatedMessage creates a message for a changed incident.
func IncidentUpdatedMessage(incident *alerting.Incident) Message {
	return Message{
		Type: MessageTypeIncidentUpdated,
		Data: map[string]interface{}{
			"incident": incident,
		},
	}
}

// SystemStatusMessage creates a message for system status updates
func SystemStatusMessage(status string, details map[string]interface{}) Message {
	return Message{
		Type: MessageTypeSystemStatus,
		Data: map[string]interface{}{
			"status":  status,
			"details": details,
		},
	}
}
