package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, eventID string) {
	t.Helper()
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: eventID}); err != nil {
		t.Fatal(err)
	}
	var ack map[string]string
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatal(err)
	}
	if ack["type"] != "subscribed" || ack["eventId"] != eventID {
		t.Fatalf("ack = %v", ack)
	}
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	follower := dial(t, srv)
	subscribe(t, follower, "e1")
	watcher := dial(t, srv)
	subscribe(t, watcher, "*")

	hub.Broadcast(events.EventSettled{EventID: "e1", WinnerDriverID: 1, BetsSettled: 2, TotalPayout: "30.00"})

	for _, conn := range []*websocket.Conn{follower, watcher} {
		var upd SettlementUpdate
		if err := conn.ReadJSON(&upd); err != nil {
			t.Fatalf("read update: %v", err)
		}
		if upd.Type != "event_settled" || upd.Payload.WinnerDriverID != 1 || upd.Payload.TotalPayout != "30.00" {
			t.Errorf("update = %+v", upd)
		}
	}
}

func TestHubPingAndValidation(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	conn := dial(t, srv)

	if err := conn.WriteJSON(ClientMsg{Type: "subscribe"}); err != nil {
		t.Fatal(err)
	}
	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil || reply["type"] != "error" {
		t.Fatalf("reply = %v, %v", reply, err)
	}

	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&reply); err != nil || reply["type"] != "pong" {
		t.Fatalf("reply = %v, %v", reply, err)
	}

	subscribe(t, conn, "e2")
	if n := hub.Subscribers("e2"); n != 1 {
		t.Errorf("Subscribers(e2) = %d, want 1", n)
	}
}

func TestDecode(t *testing.T) {
	e, err := decode(`{"event_id":"e1","winner_driver_id":44,"bets_settled":3,"total_payout":"12.00"}`)
	if err != nil || e.EventID != "e1" || e.WinnerDriverID != 44 {
		t.Errorf("decode = %+v, %v", e, err)
	}
	if _, err := decode(`{`); err == nil {
		t.Error("expected error for truncated payload")
	}
}
