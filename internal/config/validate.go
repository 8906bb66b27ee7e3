package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate verifies settings that cannot be repaired by normalization.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir is required")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Queue.MaxAttempts < 1 {
		problems = append(problems, "queue.max_attempts must be at least 1")
	}
	if c.Queue.LockTTLMinutes < 1 {
		problems = append(problems, "queue.lock_ttl_minutes must be at least 1")
	}
	if c.Extractors.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Extractors.BaseURL); err != nil {
			problems = append(problems, fmt.Sprintf("extractors.base_url is not a valid URL: %v", err))
		}
	}
	for name, endpoint := range c.Scrapers.Endpoints {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			problems = append(problems, fmt.Sprintf("scrapers.endpoints.%s is not a valid URL: %v", name, err))
		}
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		problems = append(problems, "telegram.chat_id is required when telegram.bot_token is set")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
