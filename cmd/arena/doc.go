// Package main hosts the arena CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration, the local match store,
// the processing service clients, and notifications into the reprocess
// coordinator, and exposes inspection commands for matches, run history,
// and service readiness.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
