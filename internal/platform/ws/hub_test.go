package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/schoolcare/healthd/internal/platform/events"
)

func newTestClient(topics ...string) *Client {
	return &Client{ID: "test", Topics: topics, Send: make(chan []byte, 4)}
}

func TestRegisterAndBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(events.TopicMedicationDecided)
	hub.Register(client)

	hub.Broadcast(events.Event{Topic: events.TopicMedicationDecided, Data: map[string]string{"request_id": "r1"}})

	select {
	case raw := <-client.Send:
		var evt events.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if evt.Topic != events.TopicMedicationDecided {
			t.Errorf("wrong topic: %s", evt.Topic)
		}
		if evt.Data["request_id"] != "r1" {
			t.Errorf("wrong data: %v", evt.Data)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}
}

func TestBroadcastFiltersByTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	subscribed := newTestClient(events.TopicVaccinationDone)
	other := newTestClient(events.TopicMedicationDecided)
	hub.Register(subscribed)
	hub.Register(other)

	hub.Broadcast(events.Event{Topic: events.TopicVaccinationDone})

	if len(subscribed.Send) != 1 {
		t.Error("subscribed client missed the event")
	}
	if len(other.Send) != 0 {
		t.Error("client received event for a topic it never subscribed to")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient()
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{events.TopicHealthCheckResult}})
	if hub.TopicCount(events.TopicHealthCheckResult) != 1 {
		t.Fatal("subscribe did not register the topic")
	}

	hub.Broadcast(events.Event{Topic: events.TopicHealthCheckResult})
	if len(client.Send) != 1 {
		t.Error("client missed event after subscribing")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{events.TopicHealthCheckResult}})
	if hub.TopicCount(events.TopicHealthCheckResult) != 0 {
		t.Error("unsubscribe did not remove the topic")
	}

	hub.Broadcast(events.Event{Topic: events.TopicHealthCheckResult})
	if len(client.Send) != 1 {
		t.Error("client received event after unsubscribing")
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(events.TopicMedicalEventLogged)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if _, open := <-client.Send; open {
		t.Error("send channel not closed on unregister")
	}

	// Double unregister is a no-op, not a panic.
	hub.Unregister(client)
}

func TestBroadcastSkipsFullClientBuffer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{events.TopicConsentRecorded}, Send: make(chan []byte, 1)}
	hub.Register(client)

	// Second broadcast must not block even though the buffer is full.
	hub.Broadcast(events.Event{Topic: events.TopicConsentRecorded})
	hub.Broadcast(events.Event{Topic: events.TopicConsentRecorded})

	if len(client.Send) != 1 {
		t.Errorf("expected exactly 1 buffered event, got %d", len(client.Send))
	}
}

func TestHubImplementsSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(events.TopicMedicationDecided)
	hub.Register(client)

	var _ events.Subscriber = hub
	if err := hub.Handle(context.Background(), events.Event{Topic: events.TopicMedicationDecided}); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(client.Send) != 1 {
		t.Error("event dispatched through Handle was not broadcast")
	}
}
