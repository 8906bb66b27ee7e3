// Package notifications delivers operational events via pluggable notifiers.
//
// The default implementation pushes to a Telegram chat using the bot token
// configured in config.toml and gracefully degrades to a no-op when
// notifications are disabled. Per-event switches let operators silence noisy
// events without turning off the channel entirely.
//
// Extend this package if you need alternative transports; orchestration code
// depends only on the small Service interface.
package notifications
