// Package preflight provides readiness checks for the processing service,
// its AI providers and the filesystem paths arena depends on.
//
// The CLI "arena status" command runs RunAll to display overall health. The
// reprocess coordinator performs its own AI provider gate before each run;
// CheckAIProviders mirrors that decision for operators.
package preflight
