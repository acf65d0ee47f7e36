package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Strob0t/ScriptForge/internal/service"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{
		Type:    EventProtocol,
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventNoConnections(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	// BroadcastEvent with no connections should not panic.
	hub.BroadcastEvent(context.Background(), EventSpecReloaded, SpecReloadedEvent{Revision: 2})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	// A channel cannot be marshaled to JSON; should log, not panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubSendToUnknownConnection(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	hub.SendTo(context.Background(), "no-such-conn", EventPicker, map[string]string{"k": "v"})
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	hub.remove("no-such-conn")
}

func TestHubRouteMalformedEnvelope(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	// SendTo inside route is a no-op because the connection is unknown;
	// the point is that garbage input does not panic the read loop.
	c := &conn{id: "c1", cancel: func() {}}
	hub.route(context.Background(), c, []byte("{not json"))
}

func TestHubRouteUnknownType(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	c := &conn{id: "c1", cancel: func() {}}
	frame, _ := json.Marshal(Message{Type: "mystery", Payload: []byte(`{}`)})
	hub.route(context.Background(), c, frame)
}

func TestTriggerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"access denied", service.ErrAccessDenied, ErrCodeAccessDenied},
		{"rate limited", service.ErrRateLimited, ErrCodeRateLimited},
		{"other", errors.New("boom"), ErrCodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ev := triggerError(tt.err); ev.Code != tt.code {
				t.Fatalf("expected code %q, got %q", tt.code, ev.Code)
			}
		})
	}
}
