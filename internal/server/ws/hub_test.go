package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/windowbot/internal/domain"
	"github.com/alanyoungcy/windowbot/internal/window"
)

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func TestHub_DeliversReporterEvents(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "full"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if env := readEnvelope(t, conn); env.Type != "hello" {
		t.Fatalf("first frame = %q", env.Type)
	}

	// Registration happens before the hello frame is queued, so the client
	// is already in the set.
	hub.Graded(ctx, domain.GradedSummary{Slug: "btc-updown-15m-1700000100", Outcome: window.Placeholder})

	env := readEnvelope(t, conn)
	if env.Type != domain.ChannelWindowGraded {
		t.Fatalf("type = %q", env.Type)
	}
	var s domain.GradedSummary
	if err := json.Unmarshal(env.Payload, &s); err != nil || s.Slug != "btc-updown-15m-1700000100" {
		t.Fatalf("payload = %s (%v)", env.Payload, err)
	}
}

func TestClient_Subscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelWindowStatus: true}}
	c.apply(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelWindowStatus}})
	c.apply(subscribeMsg{Action: "subscribe", Channels: []string{domain.ChannelWindowGraded}})
	if c.wants(domain.ChannelWindowStatus) || !c.wants(domain.ChannelWindowGraded) {
		t.Fatalf("subs = %v", c.subs)
	}
}
