// Package matchstore persists matches, their video segments, transcript
// side-files, and the reprocess run audit log in SQLite.
//
// The store is the durable record every reprocess run reads from and writes
// back to: the sync guard confirms a match exists here, the coordinator loads
// segments and existing transcripts, the analyzer writes manual transcripts
// through as side-files, and finalization updates status and score. Writes
// retry briefly on SQLITE_BUSY so a CLI run and a concurrent reader do not
// trip over each other.
package matchstore
