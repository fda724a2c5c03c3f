package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rankwatch/internal/domain"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func testClientConn(hub *Hub) *Client {
	return &Client{
		id:     "test-client",
		hub:    hub,
		send:   make(chan []byte, 8),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestHubDeliversRankEventsToSubscribers(t *testing.T) {
	hub := testHub(t)
	client := testClientConn(hub)

	hub.Register(client)
	hub.Subscribe(client, "osu:performance")
	waitFor(t, func() bool { return hub.GetSubscriberCount("osu:performance") == 1 })

	event := domain.RankChangeEvent{
		ID:        "e1",
		Board:     "osu:performance",
		UserID:    101,
		EventType: domain.EventTypeRankChange,
		OldRank:   2,
		NewRank:   1,
		Timestamp: time.Now(),
	}
	hub.BroadcastRankEvent(event)

	select {
	case raw := <-client.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decoding broadcast: %v", err)
		}
		if msg.Type != MessageTypeRankEvent || msg.Board != "osu:performance" {
			t.Fatalf("message = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestHubScopesBroadcastsToBoard(t *testing.T) {
	hub := testHub(t)
	client := testClientConn(hub)

	hub.Register(client)
	hub.Subscribe(client, "osu:performance")
	waitFor(t, func() bool { return hub.GetSubscriberCount("osu:performance") == 1 })

	hub.BroadcastBoardUpdate("taiko:score", nil, 0)

	select {
	case raw := <-client.send:
		t.Fatalf("received broadcast for a board not subscribed to: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := testHub(t)
	client := testClientConn(hub)

	hub.Register(client)
	hub.Subscribe(client, "osu:performance")
	waitFor(t, func() bool { return hub.GetSubscriberCount("osu:performance") == 1 })

	hub.Unsubscribe(client, "osu:performance")
	waitFor(t, func() bool { return hub.GetSubscriberCount("osu:performance") == 0 })

	if hub.GetTotalConnections() != 1 {
		t.Fatalf("total connections = %d, want 1", hub.GetTotalConnections())
	}
}

func TestHubUnregisterDropsSubscriptions(t *testing.T) {
	hub := testHub(t)
	client := testClientConn(hub)

	hub.Register(client)
	hub.Subscribe(client, "osu:performance")
	waitFor(t, func() bool { return hub.GetSubscriberCount("osu:performance") == 1 })

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.GetTotalConnections() == 0 })

	if hub.GetSubscriberCount("osu:performance") != 0 {
		t.Fatal("unregistered client still subscribed")
	}
}
