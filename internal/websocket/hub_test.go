package websocket

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testClient(id string, buffer int) *Client {
	return &Client{
		ID:     id,
		send:   make(chan []byte, buffer),
		logger: testLogger(),
		topics: make(map[string]bool),
	}
}

// addClient inserts a client without going through the register channel, so
// tests can set up hub state before Run is started.
func addClient(hub *Hub, client *Client) {
	hub.mu.Lock()
	hub.clients[client] = true
	hub.mu.Unlock()
}

func TestHub_SlowClientDroppedWithoutStallingHub(t *testing.T) {
	hub := NewHub(testLogger())

	slow := testClient("slow", 1)
	slow.send <- []byte("backlog")
	addClient(hub, slow)

	go hub.Run()

	hub.BroadcastToAll(AlertFiredMessage(nil))

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The hub loop must still be serving its channels after dropping the
	// slow client.
	fresh := testClient("fresh", 1)
	addClient(hub, fresh)
	select {
	case hub.unregister <- fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("hub stopped serving after dropping a slow client")
	}

	deadline = time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("unregister was never processed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The dropped client's channel is closed once its backlog is drained.
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open, "slow client send channel should be closed")
}

func TestHub_BroadcastRespectsTopics(t *testing.T) {
	hub := NewHub(testLogger())

	alertsOnly := testClient("alerts-only", 4)
	alertsOnly.Subscribe(TopicAlerts)
	addClient(hub, alertsOnly)

	everything := testClient("everything", 4)
	addClient(hub, everything)

	hub.broadcastMessage(IncidentCreatedMessage(nil))

	require.Len(t, everything.send, 1)
	assert.Len(t, alertsOnly.send, 0)

	hub.broadcastMessage(AlertFiredMessage(nil))

	require.Len(t, everything.send, 2)
	require.Len(t, alertsOnly.send, 1)
}
