package datafeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestStreamClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewStreamClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestStreamClient_SubscribeReceivesQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Read subscribe request
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req streamRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Action != "subscribe" || req.Symbol != "AAPL" {
			t.Errorf("request = %+v", req)
		}

		// Send a quote notification
		notif := streamNotification{
			Type:      "quote",
			Symbol:    "AAPL",
			Timestamp: 1733097600000,
			Price:     150.25,
		}
		if err := conn.WriteJSON(notif); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewStreamClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case q := <-ch:
		if q.Symbol != "AAPL" || q.Price != 150.25 {
			t.Errorf("quote = %+v", q)
		}
		if !q.Time.Equal(time.UnixMilli(1733097600000).UTC()) {
			t.Errorf("quote time = %s", q.Time)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quote")
	}
}

func TestStreamClient_DuplicateSubscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewStreamClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Subscribe(context.Background(), "AAPL"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := client.Subscribe(context.Background(), "AAPL"); err == nil {
		t.Error("duplicate subscribe should fail")
	}
}

func TestStreamClient_CloseClosesChannels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewStreamClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}

	ch, err := client.Subscribe(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Close")
	}

	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Subscribe after close fails.
	if _, err := client.Subscribe(context.Background(), "MSFT"); err == nil {
		t.Error("subscribe after close should fail")
	}
}

func TestStreamClient_IgnoresUnknownMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		// Garbage, an unrelated type, then a real quote.
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteJSON(map[string]string{"type": "heartbeat"})
		conn.WriteJSON(streamNotification{
			Type: "quote", Symbol: "AAPL", Timestamp: 1733097600000, Price: 150.25,
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewStreamClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case q := <-ch:
		if q.Price != 150.25 {
			t.Errorf("quote = %+v", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quote after noise messages")
	}
}

func TestStreamClient_DialFailure(t *testing.T) {
	_, err := NewStreamClient(context.Background(), "ws://127.0.0.1:1/nope", nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
}
