package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"driveline/internal/config"
	"driveline/internal/notifications"
)

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCycleFailed(context.Background(), "cycle-1", []string{"boom"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test to return nil, got %v", err)
	}
}

func TestTelegramServiceSendsMessages(t *testing.T) {
	var gotPath string
	var gotBody struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "-100200300"
	svc := notifications.NewService(&cfg, notifications.WithBaseURL(server.URL))

	err := svc.NotifyItemExhausted(context.Background(), "https://bringatrailer.com/listing/1", 3)
	if err != nil {
		t.Fatalf("NotifyItemExhausted: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.ChatID != "-100200300" {
		t.Fatalf("unexpected chat id %q", gotBody.ChatID)
	}
	if !strings.Contains(gotBody.Text, "after 3 attempts") {
		t.Fatalf("unexpected text %q", gotBody.Text)
	}
}

func TestTelegramServiceHonorsEventSwitches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	cfg.Telegram.CycleFailures = false
	cfg.Telegram.ExhaustedItems = false
	svc := notifications.NewService(&cfg, notifications.WithBaseURL(server.URL))

	if err := svc.NotifyCycleFailed(context.Background(), "cycle-1", []string{"x"}); err != nil {
		t.Fatalf("NotifyCycleFailed: %v", err)
	}
	if err := svc.NotifyItemExhausted(context.Background(), "url", 3); err != nil {
		t.Fatalf("NotifyItemExhausted: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected switched-off events to send nothing, got %d calls", calls)
	}
}

func TestTelegramServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	svc := notifications.NewService(&cfg, notifications.WithBaseURL(server.URL))

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error on http 400")
	}
}
