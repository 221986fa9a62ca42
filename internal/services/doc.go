// Package services defines shared utilities consumed by the reprocessing
// components and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp match IDs, run IDs, segment indexes, and
//     stage names for structured logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the reprocess error taxonomy (fatal, segment-local, best-effort).
//
// Use these helpers when wiring new reprocess logic so operational behaviour
// (error handling, observability) stays uniform across the run.
package services
