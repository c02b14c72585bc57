package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubSender struct {
	name string
	err  error
	sent []string
}

func (s *stubSender) Send(_ context.Context, title, _ string) error {
	s.sent = append(s.sent, title)
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{s}, []string{EventWindowGraded}, quiet())

	if err := n.Notify(context.Background(), EventFetchFailed, "fetch", "x"); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), EventWindowGraded, "graded", "x"); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 || s.sent[0] != "graded" {
		t.Fatalf("sent = %v", s.sent)
	}
	if err := n.NotifyAll(context.Background(), "all", "x"); err != nil || len(s.sent) != 2 {
		t.Fatalf("NotifyAll: %v %v", err, s.sent)
	}
}

func TestNotifier_EmptyFilterAllowsAll(t *testing.T) {
	n := NewNotifier(nil, nil, quiet())
	if !n.Allows("anything") {
		t.Fatal("empty filter rejected event")
	}
	if n.Enabled() {
		t.Fatal("notifier without senders reports enabled")
	}
}

func TestNotifier_OneFailureDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	bad := &stubSender{name: "bad", err: boom}
	good := &stubSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, quiet())

	err := n.NotifyAll(context.Background(), "t", "m")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(good.sent) != 1 {
		t.Fatal("second sender skipped")
	}
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42").WithAPIURL(srv.URL)
	if err := s.Send(context.Background(), "Window graded", "Total +1.00"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Fatalf("path = %q", path)
	}
	if got["chat_id"] != "42" || !strings.Contains(got["text"], "Total +1.00") {
		t.Fatalf("payload = %v", got)
	}
}

func TestDiscordSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v", err)
	}
}
