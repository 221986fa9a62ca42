package transcript

import (
	"testing"

	"arena/internal/matchstore"
)

func segment(kind matchstore.SegmentKind) matchstore.Segment {
	return matchstore.Segment{ID: "seg", MatchID: "m", Kind: kind, FileURL: "https://cdn.example/v.mp4"}
}

func TestResolvePriority(t *testing.T) {
	existing := map[string]string{
		"first":  "stored first half",
		"second": "stored second half",
		"full":   "stored whole match",
	}
	tests := []struct {
		name       string
		kind       matchstore.SegmentKind
		opts       Options
		existing   map[string]string
		wantAction Action
		wantSource Source
		wantText   string
	}{
		{
			name: "manual specific beats everything",
			kind: matchstore.KindFirstHalf,
			opts: Options{
				First:          HalfOptions{ManualText: "manual first", UseExisting: true},
				ManualFullText: "manual full",
			},
			existing:   existing,
			wantAction: ActionUse,
			wantSource: SourceManualSpecific,
			wantText:   "manual first",
		},
		{
			name: "manual full beats existing specific",
			kind: matchstore.KindFirstHalf,
			opts: Options{
				First:          HalfOptions{UseExisting: true},
				ManualFullText: "manual full",
			},
			existing:   map[string]string{"first": "stored first half"},
			wantAction: ActionUse,
			wantSource: SourceManualFull,
			wantText:   "manual full",
		},
		{
			name:       "existing specific when reuse enabled",
			kind:       matchstore.KindSecondHalf,
			opts:       Options{Second: HalfOptions{UseExisting: true}},
			existing:   existing,
			wantAction: ActionUse,
			wantSource: SourceExisting,
			wantText:   "stored second half",
		},
		{
			name:       "existing falls back to whole match",
			kind:       matchstore.KindSecondHalf,
			opts:       Options{Second: HalfOptions{UseExisting: true}},
			existing:   map[string]string{"full": "stored whole match"},
			wantAction: ActionUse,
			wantSource: SourceExisting,
			wantText:   "stored whole match",
		},
		{
			name:       "existing ignored without reuse",
			kind:       matchstore.KindFirstHalf,
			opts:       Options{},
			existing:   existing,
			wantAction: ActionTranscribe,
		},
		{
			name:       "force transcribe skips existing",
			kind:       matchstore.KindFirstHalf,
			opts:       Options{First: HalfOptions{UseExisting: true, ForceTranscribe: true}},
			existing:   existing,
			wantAction: ActionTranscribe,
		},
		{
			name:       "force transcribe keeps manual text",
			kind:       matchstore.KindFirstHalf,
			opts:       Options{First: HalfOptions{ManualText: "manual first", ForceTranscribe: true}},
			existing:   existing,
			wantAction: ActionUse,
			wantSource: SourceManualSpecific,
			wantText:   "manual first",
		},
		{
			name:       "blank manual text is ignored",
			kind:       matchstore.KindFull,
			opts:       Options{Full: HalfOptions{ManualText: "   ", UseExisting: true}},
			existing:   existing,
			wantAction: ActionUse,
			wantSource: SourceExisting,
			wantText:   "stored whole match",
		},
		{
			name:       "nothing available",
			kind:       matchstore.KindSecondHalf,
			opts:       Options{Second: HalfOptions{UseExisting: true}},
			existing:   nil,
			wantAction: ActionTranscribe,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(segment(tt.kind), tt.opts, tt.existing)
			if res.Action != tt.wantAction {
				t.Fatalf("action = %s, want %s", res.Action, tt.wantAction)
			}
			if res.Transcript.Label != tt.kind.Label() {
				t.Fatalf("label = %q, want %q", res.Transcript.Label, tt.kind.Label())
			}
			if tt.wantAction != ActionUse {
				return
			}
			if res.Transcript.Source != tt.wantSource || res.Transcript.Text != tt.wantText {
				t.Fatalf("got %s %q, want %s %q", res.Transcript.Source, res.Transcript.Text, tt.wantSource, tt.wantText)
			}
		})
	}
}

func TestTranscriptManual(t *testing.T) {
	if !(Transcript{Source: SourceManualFull}).Manual() || !(Transcript{Source: SourceManualSpecific}).Manual() {
		t.Fatalf("manual sources should report Manual")
	}
	if (Transcript{Source: SourceExisting}).Manual() || (Transcript{Source: SourceTranscribed}).Manual() {
		t.Fatalf("stored and transcribed text are not manual")
	}
}
