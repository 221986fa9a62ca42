// Package config loads, normalizes, and validates arena configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARENA_SERVER_URL and ARENA_SYNC_KEY. Every knob the reprocess coordinator
// and CLI need lives on Config so callers receive sanitized paths, canonical
// log formats, and clear validation errors from a single Load call.
package config
