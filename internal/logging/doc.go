// Package logging assembles structured slog loggers and formatting helpers used
// across the reprocessing components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so component code automatically tags log
// lines with match IDs, run IDs, segment indexes, and stages. Each reprocess
// run additionally tees its records into a per-run JSON file, which forms the
// run's structured audit trail. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
package logging
