// Package notifications publishes reprocess run events to ntfy.
//
// Callers publish an Event with a free-form Payload; the ntfy implementation
// renders a title, message, tags, and priority per event and honours the
// per-event toggles in the [notifications] config section. When no topic is
// configured a noop service is returned so callers never need nil checks.
package notifications
