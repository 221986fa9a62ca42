package progress

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Coarse checkpoints for a run.
const (
	PercentSyncing       = 1
	PercentFetchStart    = 3
	PercentFetchDone     = 5
	PercentSegmentBase   = 20
	PercentSegmentWidth  = 35
	PercentFinalizing    = 95
	PercentDone          = 100
	segmentCeiling       = PercentFinalizing - 1
	stepTranscribeOffset = 10
	stepAnalyzeOffset    = 20
	stepFinishedOffset   = 30
)

// Step is a point inside one segment's band.
type Step int

const (
	StepStart Step = iota
	StepTranscribe
	StepAnalyze
	StepFinished
)

// SegmentPercent returns the percent for step within segment index's band,
// which starts at 20 + index*35. Values never reach the finalizing checkpoint.
func SegmentPercent(index int, step Step) int {
	if index < 0 {
		index = 0
	}
	base := PercentSegmentBase + index*PercentSegmentWidth
	switch step {
	case StepTranscribe:
		base += stepTranscribeOffset
	case StepAnalyze:
		base += stepAnalyzeOffset
	case StepFinished:
		base += stepFinishedOffset
	}
	if base > segmentCeiling {
		return segmentCeiling
	}
	return base
}

var titleCaser = cases.Title(language.English)

// StageLabel renders a state name and optional half label as a title, e.g.
// ("transcribing", "first") -> "Transcribing First Half".
func StageLabel(state, half string) string {
	words := strings.Fields(strings.ReplaceAll(state, "_", " "))
	if half = strings.TrimSpace(half); half != "" {
		words = append(words, half)
		if half != "full" {
			words = append(words, "half")
		} else {
			words = append(words, "match")
		}
	}
	if len(words) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(words, " "))
}
