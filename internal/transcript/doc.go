// Package transcript selects the transcription text for each video segment.
//
// Exactly one source is chosen per segment, never merged. In priority order:
// manual text for the segment's half, manual whole-match text, a stored
// transcript (only when reuse is opted in and transcription is not forced),
// and finally a fresh speech-to-text run. Selected text goes through an
// integrity heuristic that flags transcripts mentioning neither team.
package transcript
