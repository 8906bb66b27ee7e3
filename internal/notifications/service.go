package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"driveline/internal/config"
)

const userAgent = "Driveline-Go/0.1.0"

const defaultAPIBase = "https://api.telegram.org"

// Service defines the notification surface exposed to orchestration
// components.
type Service interface {
	NotifyCycleFailed(ctx context.Context, cycleID string, errs []string) error
	NotifyItemExhausted(ctx context.Context, sourceURL string, attempts int) error
	TestNotification(ctx context.Context) error
}

// Option customizes the constructed service.
type Option func(*telegramService)

// WithBaseURL overrides the Telegram API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(s *telegramService) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			s.apiBase = base
		}
	}
}

// NewService builds a notification service backed by the Telegram bot API
// when configured. When token or chat id is missing, a noop implementation
// is returned.
func NewService(cfg *config.Config, opts ...Option) Service {
	token := strings.TrimSpace(cfg.Telegram.BotToken)
	chatID := strings.TrimSpace(cfg.Telegram.ChatID)
	if token == "" || chatID == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Telegram.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	svc := &telegramService{
		apiBase:        defaultAPIBase,
		token:          token,
		chatID:         chatID,
		cycleFailures:  cfg.Telegram.CycleFailures,
		exhaustedItems: cfg.Telegram.ExhaustedItems,
		client:         &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type telegramService struct {
	apiBase        string
	token          string
	chatID         string
	cycleFailures  bool
	exhaustedItems bool
	client         *http.Client
}

func (s *telegramService) NotifyCycleFailed(ctx context.Context, cycleID string, errs []string) error {
	if !s.cycleFailures {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Driveline cycle %s finished with errors:", strings.TrimSpace(cycleID))
	for _, msg := range errs {
		b.WriteString("\n- ")
		b.WriteString(strings.TrimSpace(msg))
	}
	return s.send(ctx, b.String())
}

func (s *telegramService) NotifyItemExhausted(ctx context.Context, sourceURL string, attempts int) error {
	if !s.exhaustedItems {
		return nil
	}
	message := fmt.Sprintf("Driveline gave up on %s after %d attempts", strings.TrimSpace(sourceURL), attempts)
	return s.send(ctx, message)
}

func (s *telegramService) TestNotification(ctx context.Context) error {
	return s.send(ctx, "Driveline test notification")
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (s *telegramService) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	encoded, err := json.Marshal(sendMessageRequest{ChatID: s.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("notifications: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("notifications: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifications: send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notifications: telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyCycleFailed(context.Context, string, []string) error { return nil }

func (noopService) NotifyItemExhausted(context.Context, string, int) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
