package transcript

import (
	"strings"

	"arena/internal/matchstore"
)

// Source identifies where a transcript came from.
type Source string

const (
	SourceManualSpecific Source = "manual_specific"
	SourceManualFull     Source = "manual_full"
	SourceExisting       Source = "existing"
	SourceTranscribed    Source = "transcribed"
)

// Transcript is the text chosen for one segment.
type Transcript struct {
	Text   string
	Source Source
	// Label is the half the transcript applies to: first, second, or full.
	Label string
}

// Manual reports whether the text was supplied by the operator.
func (t Transcript) Manual() bool {
	return t.Source == SourceManualSpecific || t.Source == SourceManualFull
}

// HalfOptions controls transcript selection for one half.
type HalfOptions struct {
	UseExisting     bool
	ManualText      string
	ForceTranscribe bool
}

// Options are the reprocess options for a whole run. They are read-only for
// the duration of the run.
type Options struct {
	First          HalfOptions
	Second         HalfOptions
	Full           HalfOptions
	ManualFullText string
}

// ForKind returns the options governing a segment kind.
func (o Options) ForKind(kind matchstore.SegmentKind) HalfOptions {
	switch kind {
	case matchstore.KindFirstHalf:
		return o.First
	case matchstore.KindSecondHalf:
		return o.Second
	case matchstore.KindFull:
		return o.Full
	default:
		return HalfOptions{}
	}
}

// Action is what the caller must do with a resolution.
type Action int

const (
	// ActionUse means Transcript holds the selected text.
	ActionUse Action = iota
	// ActionTranscribe means no text was available and speech-to-text must run.
	ActionTranscribe
)

func (a Action) String() string {
	if a == ActionTranscribe {
		return "transcribe"
	}
	return "use"
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Action     Action
	Transcript Transcript
}

// Resolve picks the transcript for seg. existing maps half labels to stored
// transcript text, as returned by matchstore.TranscriptsByLabel.
func Resolve(seg matchstore.Segment, opts Options, existing map[string]string) Resolution {
	label := seg.Kind.Label()
	half := opts.ForKind(seg.Kind)

	if text := strings.TrimSpace(half.ManualText); text != "" {
		return use(text, SourceManualSpecific, label)
	}
	if text := strings.TrimSpace(opts.ManualFullText); text != "" {
		return use(text, SourceManualFull, label)
	}
	if half.UseExisting && !half.ForceTranscribe {
		if text := strings.TrimSpace(existing[label]); text != "" {
			return use(text, SourceExisting, label)
		}
		if text := strings.TrimSpace(existing[matchstore.KindFull.Label()]); text != "" {
			return use(text, SourceExisting, label)
		}
	}
	return Resolution{Action: ActionTranscribe, Transcript: Transcript{Label: label}}
}

func use(text string, source Source, label string) Resolution {
	return Resolution{
		Action:     ActionUse,
		Transcript: Transcript{Text: text, Source: source, Label: label},
	}
}
