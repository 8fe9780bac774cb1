package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/yorishop/yori-backend/pkg/config"
)

func newTestClient(userID, room string) *Client {
	return &Client{
		UserID: userID,
		Room:   room,
		send:   make(chan []byte, sendBuffer),
	}
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub(config.ChatConfig{}, nil)
	inRoom := newTestClient("u1", "conv-1")
	otherRoom := newTestClient("u2", "conv-2")
	hub.Register(inRoom)
	hub.Register(otherRoom)

	hub.Broadcast(context.Background(), "conv-1", map[string]string{"body": "hello"})

	select {
	case data := <-inRoom.send:
		var payload map[string]string
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("broadcast payload is not json: %v", err)
		}
		if payload["body"] != "hello" {
			t.Fatalf("unexpected payload %v", payload)
		}
	default:
		t.Fatal("expected message queued for room member")
	}

	select {
	case <-otherRoom.send:
		t.Fatal("message leaked into another room")
	default:
	}
}

func TestUnregisterRemovesClient(t *testing.T) {
	hub := NewHub(config.ChatConfig{}, nil)
	c := newTestClient("u1", "conv-1")
	hub.Register(c)
	if hub.RoomSize("conv-1") != 1 {
		t.Fatalf("expected 1 client, got %d", hub.RoomSize("conv-1"))
	}

	hub.Unregister(c)
	if hub.RoomSize("conv-1") != 0 {
		t.Fatalf("expected empty room, got %d", hub.RoomSize("conv-1"))
	}

	// Unregister twice must not panic on a closed channel.
	hub.Unregister(c)
}

func TestBroadcastDropsSlowClients(t *testing.T) {
	hub := NewHub(config.ChatConfig{}, nil)
	slow := &Client{UserID: "u1", Room: "conv-1", send: make(chan []byte)}
	hub.Register(slow)

	hub.Broadcast(context.Background(), "conv-1", map[string]string{"body": "x"})

	if hub.RoomSize("conv-1") != 0 {
		t.Fatal("expected slow client to be evicted")
	}
}
