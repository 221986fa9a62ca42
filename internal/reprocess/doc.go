// Package reprocess drives a match reprocessing run.
//
// A run moves through idle, syncing and fetching_videos, then handles each
// segment strictly in order (loading_existing, resolving, an optional
// confirming step, transcribing when no text exists, analyzing), and ends in
// finalizing then done, or in aborted. Segment failures are reported and
// skipped; only a failed sync, missing AI providers, a declined integrity
// prompt, or cancellation abort the run. An aborted run never touches the
// match status or scores.
//
// One run per match id may be active at a time, enforced in-process and across
// processes through a lock file. Every transition is logged with the run id,
// segment index and stage, and appended to the run audit log in the store.
package reprocess
