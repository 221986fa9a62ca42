// Package progress reports human-readable reprocess progress.
//
// A Tracker holds the current {stage, percent} for one run, clamps percent to
// 0..100, never lets it move backwards within a run, and fans each update out
// to fire-and-forget sinks. Reset starts a new run from zero. The checkpoint
// helpers map coordinator states onto the coarse percentage bands operators
// see.
package progress
