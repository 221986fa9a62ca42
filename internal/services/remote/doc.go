// Package remote talks to the primary processing service: ensuring match
// records, syncing uploaded videos into segments, speech-to-text for long
// videos, tactical analysis, and AI provider availability.
//
// Requests retry with exponential backoff on 408/429/5xx responses and
// network timeouts. Every failure is returned wrapped with a services marker
// so callers can classify it without inspecting HTTP details.
package remote
