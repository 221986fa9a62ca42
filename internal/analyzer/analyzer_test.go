package analyzer

import (
	"context"
	"errors"
	"testing"

	"arena/internal/config"
	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/services"
	"arena/internal/services/remote"
	"arena/internal/testsupport"
	"arena/internal/transcript"
)

type fakeService struct {
	got  remote.AnalyzeRequest
	resp remote.AnalyzeResult
	err  error
}

func (f *fakeService) AnalyzeMatch(_ context.Context, req remote.AnalyzeRequest) (remote.AnalyzeResult, error) {
	f.got = req
	return f.resp, f.err
}

type failingWriter struct{ calls int }

func (w *failingWriter) WriteSideFile(context.Context, string, string, string) error {
	w.calls++
	return errors.New("disk full")
}

func intp(v int) *int { return &v }

func TestAnalyzePersistsManualTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	match := testsupport.SeedMatch(t, store, testsupport.SampleMatch("m-1"))
	seg := testsupport.SeedSegment(t, store, match.ID, matchstore.KindFirstHalf, "https://cdn.example/1.mp4")

	svc := &fakeService{resp: remote.AnalyzeResult{EventsCreated: intp(4)}}
	a := New(svc, store, DefaultHalfBounds(), logging.NewNop())
	text := testsupport.Commentary("Flamengo")

	res, err := a.Analyze(context.Background(), Input{
		Match:      *match,
		Segment:    seg,
		Transcript: transcript.Transcript{Text: text, Source: transcript.SourceManualSpecific, Label: "first"},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.EventsDetected != 4 || res.HomeScore != nil {
		t.Fatalf("unexpected result %+v", res)
	}

	files, err := store.ListSideFiles(context.Background(), match.ID, matchstore.TranscriptFolder)
	if err != nil {
		t.Fatalf("ListSideFiles: %v", err)
	}
	byLabel := matchstore.TranscriptsByLabel(files)
	if byLabel["first"] != text {
		t.Fatalf("manual transcript not persisted: %v", byLabel)
	}

	got := svc.got
	if got.MatchID != "m-1" || got.HomeTeam != "Flamengo Rubro" || got.AwayTeam != "Palmeiras Verde" {
		t.Fatalf("unexpected request identity %+v", got)
	}
	if got.GameStartMinute != 0 || got.GameEndMinute != 45 || got.HalfType != "first" {
		t.Fatalf("unexpected bounds %d-%d %s", got.GameStartMinute, got.GameEndMinute, got.HalfType)
	}
	if got.MatchData.HomeTeam.ID != "team-home" || got.MatchData.Status != "pending" {
		t.Fatalf("match data not forwarded: %+v", got.MatchData)
	}
}

func TestAnalyzeSkipsPersistForStoredTranscripts(t *testing.T) {
	writer := &failingWriter{}
	a := New(&fakeService{}, writer, DefaultHalfBounds(), nil)
	_, err := a.Analyze(context.Background(), Input{
		Match:      testsupport.SampleMatch("m-1"),
		Segment:    matchstore.Segment{Kind: matchstore.KindSecondHalf},
		Transcript: transcript.Transcript{Text: "stored text", Source: transcript.SourceExisting},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if writer.calls != 0 {
		t.Fatalf("existing transcripts must not be rewritten")
	}
}

func TestAnalyzeIgnoresPersistFailure(t *testing.T) {
	writer := &failingWriter{}
	svc := &fakeService{resp: remote.AnalyzeResult{EventsDetected: intp(2), HomeScore: intp(1), AwayScore: intp(0)}}
	a := New(svc, writer, DefaultHalfBounds(), nil)

	res, err := a.Analyze(context.Background(), Input{
		Match:      testsupport.SampleMatch("m-1"),
		Segment:    matchstore.Segment{Kind: matchstore.KindFull},
		Transcript: transcript.Transcript{Text: "manual text", Source: transcript.SourceManualFull, Label: "full"},
	})
	if err != nil {
		t.Fatalf("persist failure must not fail analysis: %v", err)
	}
	if writer.calls != 1 {
		t.Fatalf("expected one write attempt, got %d", writer.calls)
	}
	if res.EventsDetected != 2 || *res.HomeScore != 1 || *res.AwayScore != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if svc.got.GameStartMinute != 0 || svc.got.GameEndMinute != 90 {
		t.Fatalf("full match should default to 0-90, got %d-%d", svc.got.GameStartMinute, svc.got.GameEndMinute)
	}
}

func TestAnalyzeServiceFailure(t *testing.T) {
	svc := &fakeService{err: services.Wrap(services.ErrExternalService, "analyzing", "analyze match", "quota exceeded", nil)}
	a := New(svc, nil, DefaultHalfBounds(), nil)
	_, err := a.Analyze(context.Background(), Input{
		Match:      testsupport.SampleMatch("m-1"),
		Segment:    matchstore.Segment{Kind: matchstore.KindFirstHalf},
		Transcript: transcript.Transcript{Text: "text", Source: transcript.SourceTranscribed},
	})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if services.Classify(err) != services.SeveritySegment {
		t.Fatalf("analysis failure should be segment-local")
	}
}

func TestAnalyzeRejectsEmptyTranscript(t *testing.T) {
	a := New(&fakeService{}, nil, DefaultHalfBounds(), nil)
	_, err := a.Analyze(context.Background(), Input{Segment: matchstore.Segment{Kind: matchstore.KindFirstHalf}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHalfBounds(t *testing.T) {
	bounds := HalfBoundsFromConfig(config.Analysis{FirstHalfStart: 0, FirstHalfEnd: 47, SecondHalfStart: 47, SecondHalfEnd: 95})
	tests := []struct {
		name string
		seg  matchstore.Segment
		want Bounds
	}{
		{"first default", matchstore.Segment{Kind: matchstore.KindFirstHalf}, Bounds{0, 47}},
		{"second default", matchstore.Segment{Kind: matchstore.KindSecondHalf}, Bounds{47, 95}},
		{"full default", matchstore.Segment{Kind: matchstore.KindFull}, Bounds{0, 95}},
		{"segment minutes win", matchstore.Segment{Kind: matchstore.KindSecondHalf, StartMinute: intp(50), EndMinute: intp(98)}, Bounds{50, 98}},
		{"partial override", matchstore.Segment{Kind: matchstore.KindFirstHalf, EndMinute: intp(40)}, Bounds{0, 40}},
	}
	for _, tt := range tests {
		if got := bounds.For(tt.seg); got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}
