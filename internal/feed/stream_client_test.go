package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestStreamClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewStreamClient(ctx, wsURL, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestStreamClient_SubscribeAndReceive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req streamMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}

		if req.Op != "subscribe" {
			t.Errorf("expected subscribe, got %s", req.Op)
		}
		if req.Token != "TokenA" {
			t.Errorf("expected TokenA, got %s", req.Token)
		}

		// Confirm subscription
		if err := c.WriteJSON(streamMessage{Op: "subscribed", Token: req.Token}); err != nil {
			t.Errorf("write confirmation: %v", err)
			return
		}

		// Send a tick
		time.Sleep(50 * time.Millisecond)
		tick := streamMessage{
			Op:          "tick",
			Token:       "TokenA",
			TimestampMs: 1700000000000,
			Price:       1.5,
			Volume:      250,
			HolderCount: 30,
		}
		if err := c.WriteJSON(tick); err != nil {
			t.Errorf("write tick: %v", err)
			return
		}

		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewStreamClient(ctx, wsURL, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(ctx, "TokenA")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case quote := <-ch:
		if quote.TokenAddress != "TokenA" {
			t.Errorf("expected TokenA, got %s", quote.TokenAddress)
		}
		if quote.Price != 1.5 {
			t.Errorf("expected price 1.5, got %f", quote.Price)
		}
		if quote.Measurement.Volume != 250 {
			t.Errorf("expected volume 250, got %f", quote.Measurement.Volume)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for quote")
	}
}

func TestStreamClient_DuplicateSubscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req streamMessage
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			if req.Op == "subscribe" {
				c.WriteJSON(streamMessage{Op: "subscribed", Token: req.Token})
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewStreamClient(ctx, wsURL, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Subscribe(ctx, "TokenA"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := client.Subscribe(ctx, "TokenA"); err == nil {
		t.Error("expected error on duplicate subscribe")
	}
}

func TestStreamClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewStreamClient(ctx, wsURL, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestStreamClient_SubscribeAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewStreamClient(ctx, wsURL, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}

	client.Close()

	if _, err := client.Subscribe(ctx, "TokenA"); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestStreamSource_FetchLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req streamMessage
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			if req.Op == "subscribe" {
				c.WriteJSON(streamMessage{Op: "subscribed", Token: req.Token})
				c.WriteJSON(streamMessage{Op: "tick", Token: req.Token, TimestampMs: 1000, Price: 1.0})
				c.WriteJSON(streamMessage{Op: "tick", Token: req.Token, TimestampMs: 2000, Price: 1.2})
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	ctx := context.Background()
	client, err := NewStreamClient(ctx, wsURL, nil, testLogger())
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}

	source := NewStreamSource(client)
	defer source.Close()

	if err := source.Watch(ctx, "TokenA"); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Wait for the cache to observe the second tick.
	deadline := time.Now().Add(2 * time.Second)
	for {
		quote, err := source.Fetch(ctx, "TokenA")
		if err == nil && quote.TimestampMs == 2000 {
			if quote.Price != 1.2 {
				t.Errorf("expected price 1.2, got %f", quote.Price)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for cached quote")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
