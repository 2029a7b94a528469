// Package config loads, normalizes, and validates cargoport configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANTHROPIC_API_KEY and DATABASE_URL. The Config type centralizes every knob
// the daemon and CLI need, including the fixed set of periodic job kinds and
// their periods.
//
// Misconfiguration is reported by Load as an error so the daemon fails at
// startup instead of mid-run.
package config
