// Package config loads and validates driveline's TOML configuration.
//
// Loading happens in three passes: decode over defaults, normalize (path
// expansion, env var fallbacks, host canonicalization), then validate.
// Tunables that govern queue correctness (lock TTL, attempt cap) live only
// here so no component carries its own literal.
package config
