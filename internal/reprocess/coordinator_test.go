package reprocess

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"arena/internal/analyzer"
	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/notifications"
	"arena/internal/progress"
	"arena/internal/services"
	"arena/internal/services/remote"
	"arena/internal/testsupport"
	"arena/internal/transcript"
)

const matchID = "m-1"

var unrelatedText = "A long description of a cup tie between two clubs that never names either side, with plenty of chances."

type fakeGuard struct {
	ok    bool
	calls int
}

func (g *fakeGuard) EnsureSynced(context.Context, string, matchstore.Match) bool {
	g.calls++
	return g.ok
}

type fakeTranscriber struct {
	texts map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, seg matchstore.Segment) (transcript.Transcript, error) {
	half := seg.Kind.Label()
	f.calls = append(f.calls, half)
	if err := f.errs[half]; err != nil {
		return transcript.Transcript{}, err
	}
	text, ok := f.texts[half]
	if !ok {
		text = testsupport.Commentary("Flamengo", "Palmeiras")
	}
	return transcript.Transcript{Text: text, Source: transcript.SourceTranscribed, Label: half}, nil
}

type fakeAnalyzer struct {
	results map[string]analyzer.Result
	errs    map[string]error
	inputs  []analyzer.Input
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in analyzer.Input) (analyzer.Result, error) {
	f.inputs = append(f.inputs, in)
	half := in.Segment.Kind.Label()
	if err := f.errs[half]; err != nil {
		return analyzer.Result{}, err
	}
	return f.results[half], nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, payload)
	return nil
}

func (n *recordingNotifier) count(event notifications.Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

type fakeAI struct {
	status remote.AIStatus
	err    error
}

func (f fakeAI) CheckAIStatus(context.Context) (remote.AIStatus, error) { return f.status, f.err }

type harness struct {
	t        *testing.T
	store    *matchstore.Store
	guard    *fakeGuard
	stt      *fakeTranscriber
	analyzer *fakeAnalyzer
	notifier *recordingNotifier
	updates  []progress.Update
	deps     Deps
	settings Settings
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedMatch(t, store, testsupport.SampleMatch(matchID))

	h := &harness{
		t:        t,
		store:    store,
		guard:    &fakeGuard{ok: true},
		stt:      &fakeTranscriber{},
		analyzer: &fakeAnalyzer{results: map[string]analyzer.Result{}},
		notifier: &recordingNotifier{},
	}
	h.deps = Deps{
		Store:       store,
		Audit:       store,
		Guard:       h.guard,
		AI:          fakeAI{status: remote.AIStatus{AnyConfigured: true, Gemini: true}},
		Transcriber: h.stt,
		Analyzer:    h.analyzer,
		Invalidator: store,
		Notifier:    h.notifier,
		Progress:    progress.NewTracker(nil, progress.SinkFunc(func(u progress.Update) { h.updates = append(h.updates, u) })),
		Logger:      logging.NewNop(),
	}
	h.settings = Settings{
		LockDir:          cfg.Paths.LockDir,
		RunLogDir:        cfg.RunLogDir(),
		LogRetentionDays: 30,
		MinChars:         50,
	}
	return h
}

func (h *harness) segment(kind matchstore.SegmentKind) {
	h.t.Helper()
	testsupport.SeedSegment(h.t, h.store, matchID, kind, "https://cdn.example/"+kind.String()+".mp4")
}

func (h *harness) run(opts transcript.Options) Outcome {
	h.t.Helper()
	return New(h.deps, h.settings).Run(context.Background(), Request{MatchID: matchID, Options: opts})
}

func (h *harness) match() *matchstore.Match {
	h.t.Helper()
	m, err := h.store.GetMatch(context.Background(), matchID)
	if err != nil || m == nil {
		h.t.Fatalf("GetMatch: %v (%v)", err, m)
	}
	return m
}

func intp(v int) *int { return &v }

func TestRunTranscribesAndAnalyzesEverySegment(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindSecondHalf)
	h.segment(matchstore.KindFirstHalf)
	h.analyzer.results["first"] = analyzer.Result{EventsDetected: 4}
	h.analyzer.results["second"] = analyzer.Result{EventsDetected: 6}
	before := h.match().CacheVersion

	out := h.run(transcript.Options{})

	if !out.Completed() {
		t.Fatalf("expected completed run, got %s (%s)", out.State, out.Reason)
	}
	if got := h.stt.calls; len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("expected transcription of both halves in order, got %v", got)
	}
	if len(h.analyzer.inputs) != 2 {
		t.Fatalf("expected two analyses, got %d", len(h.analyzer.inputs))
	}
	m := h.match()
	if m.Status != matchstore.StatusCompleted {
		t.Fatalf("expected completed status, got %s", m.Status)
	}
	if m.CacheVersion != before+1 {
		t.Fatalf("expected cache invalidation, version %d -> %d", before, m.CacheVersion)
	}
	if out.TotalEvents != 10 {
		t.Fatalf("expected 10 events, got %d", out.TotalEvents)
	}

	last := h.updates[len(h.updates)-1]
	if last.Percent != 100 || last.Stage != "Done" {
		t.Fatalf("unexpected final progress %+v", last)
	}
	for i := 1; i < len(h.updates); i++ {
		if h.updates[i].Percent < h.updates[i-1].Percent {
			t.Fatalf("progress went backwards: %+v", h.updates)
		}
	}
	if h.notifier.count(notifications.EventReprocessCompleted) != 1 {
		t.Fatalf("expected one completion notification, got %v", h.notifier.events)
	}

	run, err := h.store.GetRun(context.Background(), out.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v (%v)", err, run)
	}
	if run.Outcome != matchstore.OutcomeCompleted || run.TotalEvents != 10 || run.State != string(StateDone) {
		t.Fatalf("unexpected audit record %+v", run)
	}
	events, err := h.store.RunEvents(context.Background(), out.RunID)
	if err != nil || len(events) == 0 {
		t.Fatalf("expected run events, got %d (%v)", len(events), err)
	}
	if events[0].State != string(StateSyncing) || events[len(events)-1].State != string(StateDone) {
		t.Fatalf("unexpected event log bounds %s..%s", events[0].State, events[len(events)-1].State)
	}
	if _, err := os.Stat(out.LogPath); err != nil {
		t.Fatalf("expected run log at %q: %v", out.LogPath, err)
	}
}

func TestRunAggregatesEventsAcrossSegments(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.segment(matchstore.KindFull)
	h.segment(matchstore.KindSecondHalf)
	h.analyzer.results["first"] = analyzer.Result{EventsDetected: 3}
	h.analyzer.results["full"] = analyzer.Result{EventsDetected: 7}
	h.analyzer.results["second"] = analyzer.Result{EventsDetected: 5}

	out := h.run(transcript.Options{
		First:  transcript.HalfOptions{ManualText: testsupport.Commentary("Flamengo")},
		Full:   transcript.HalfOptions{ManualText: "too short"},
		Second: transcript.HalfOptions{ManualText: testsupport.Commentary("Palmeiras")},
	})

	if !out.Completed() {
		t.Fatalf("expected completed run, got %s (%s)", out.State, out.Reason)
	}
	if out.TotalEvents != 8 {
		t.Fatalf("expected 3+0+5=8 events, got %d", out.TotalEvents)
	}
	if len(h.stt.calls) != 0 {
		t.Fatalf("manual text must not trigger transcription, got %v", h.stt.calls)
	}
	if len(out.Segments) != 3 || out.Segments[1].Status != SegmentSkipped || out.Segments[1].Half != "full" {
		t.Fatalf("expected the full segment skipped, got %+v", out.Segments)
	}
	if h.notifier.count(notifications.EventSegmentFailed) != 1 {
		t.Fatalf("expected one segment notification, got %v", h.notifier.events)
	}
}

func TestRunScoreLastWriteWins(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.segment(matchstore.KindSecondHalf)
	h.analyzer.results["first"] = analyzer.Result{EventsDetected: 1}
	h.analyzer.results["second"] = analyzer.Result{EventsDetected: 2, HomeScore: intp(2), AwayScore: intp(1)}

	out := h.run(transcript.Options{})

	if out.HomeScore != 2 || out.AwayScore != 1 {
		t.Fatalf("expected 2-1, got %d-%d", out.HomeScore, out.AwayScore)
	}
	m := h.match()
	if m.HomeScore != 2 || m.AwayScore != 1 {
		t.Fatalf("expected stored 2-1, got %d-%d", m.HomeScore, m.AwayScore)
	}
}

func TestRunScoreDefaultsToZero(t *testing.T) {
	h := newHarness(t)
	m := testsupport.SampleMatch(matchID)
	m.HomeScore, m.AwayScore = 3, 3
	testsupport.SeedMatch(t, h.store, m)
	h.segment(matchstore.KindFull)

	out := h.run(transcript.Options{})
	if !out.Completed() {
		t.Fatalf("expected completed run, got %s", out.State)
	}
	if got := h.match(); got.HomeScore != 0 || got.AwayScore != 0 {
		t.Fatalf("expected 0-0 without analysis scores, got %d-%d", got.HomeScore, got.AwayScore)
	}
}

func TestRunDeclinedIntegrityAborts(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.segment(matchstore.KindSecondHalf)
	if err := h.store.WriteSideFile(context.Background(), matchID, unrelatedText, "first"); err != nil {
		t.Fatalf("WriteSideFile: %v", err)
	}
	var prompts []Prompt
	h.deps.Confirmer = ConfirmerFunc(func(_ context.Context, p Prompt) (bool, error) {
		prompts = append(prompts, p)
		return false, nil
	})

	out := h.run(transcript.Options{First: transcript.HalfOptions{UseExisting: true}})

	if out.State != StateAborted {
		t.Fatalf("expected aborted run, got %s", out.State)
	}
	if len(prompts) != 1 || prompts[0].Half != "first" || prompts[0].Source != transcript.SourceExisting {
		t.Fatalf("unexpected prompts %+v", prompts)
	}
	if len(h.analyzer.inputs) != 0 || out.TotalEvents != 0 {
		t.Fatalf("no analysis may happen after a decline")
	}
	m := h.match()
	if m.Status != matchstore.StatusPending || m.HomeScore != 0 || m.AwayScore != 0 || m.CacheVersion != 0 {
		t.Fatalf("match must be untouched, got %+v", m)
	}
	if h.notifier.count(notifications.EventReprocessAborted) != 1 || h.notifier.count(notifications.EventIntegrityWarning) != 1 {
		t.Fatalf("unexpected notifications %v", h.notifier.events)
	}
	if !errors.Is(out.Err, services.ErrCancelled) {
		t.Fatalf("expected cancellation outcome, got %v", out.Err)
	}
	run, err := h.store.GetRun(context.Background(), out.RunID)
	if err != nil || run == nil || run.Outcome != matchstore.OutcomeAborted {
		t.Fatalf("expected aborted audit record, got %+v (%v)", run, err)
	}
}

func TestRunAcceptedIntegrityContinues(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.analyzer.results["first"] = analyzer.Result{EventsDetected: 2}
	h.deps.Confirmer = ConfirmerFunc(func(context.Context, Prompt) (bool, error) { return true, nil })

	out := h.run(transcript.Options{ManualFullText: unrelatedText})

	if !out.Completed() || out.TotalEvents != 2 {
		t.Fatalf("expected completed run with 2 events, got %s %d", out.State, out.TotalEvents)
	}
	if h.analyzer.inputs[0].Transcript.Source != transcript.SourceManualFull {
		t.Fatalf("expected manual full transcript, got %s", h.analyzer.inputs[0].Transcript.Source)
	}
}

func TestRunWithoutConfirmerAbortsOnSuspiciousTranscript(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)

	out := h.run(transcript.Options{ManualFullText: unrelatedText})
	if out.State != StateAborted {
		t.Fatalf("expected abort without a confirmer, got %s", out.State)
	}
}

func TestRunSkipsTeamCheckForFreshTranscription(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.stt.texts = map[string]string{"first": unrelatedText}
	h.analyzer.results["first"] = analyzer.Result{EventsDetected: 1}

	out := h.run(transcript.Options{})

	if !out.Completed() || out.TotalEvents != 1 {
		t.Fatalf("expected completed run with 1 event, got %s %d (%s)", out.State, out.TotalEvents, out.Reason)
	}
	if got := h.notifier.count(notifications.EventIntegrityWarning); got != 0 {
		t.Fatalf("expected no integrity warning for transcribed text, got %d", got)
	}
	if h.analyzer.inputs[0].Transcript.Text != unrelatedText {
		t.Fatalf("expected transcribed text to be analyzed, got %q", h.analyzer.inputs[0].Transcript.Text)
	}
}

func TestRunAbortsWhenSyncFails(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.guard.ok = false

	out := h.run(transcript.Options{})

	if out.State != StateAborted {
		t.Fatalf("expected aborted run, got %s", out.State)
	}
	if len(h.stt.calls) != 0 || len(h.analyzer.inputs) != 0 {
		t.Fatalf("no segment work may happen after sync failure")
	}
	if h.match().Status != matchstore.StatusPending {
		t.Fatalf("match status must be untouched")
	}
	if h.notifier.count(notifications.EventReprocessAborted) != 1 {
		t.Fatalf("expected one abort notification, got %v", h.notifier.events)
	}
}

func TestRunRequiresAIProvider(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.deps.AI = fakeAI{status: remote.AIStatus{}}

	out := h.run(transcript.Options{})

	if out.State != StateAborted || h.guard.calls != 0 {
		t.Fatalf("expected abort before sync, got %s (guard calls %d)", out.State, h.guard.calls)
	}
	if !errors.Is(out.Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", out.Err)
	}
}

func TestRunContinuesWhenAIStatusUnavailable(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.deps.AI = fakeAI{err: services.Wrap(services.ErrExternalService, "preflight", "check ai status", "502", nil)}

	if out := h.run(transcript.Options{}); !out.Completed() {
		t.Fatalf("expected completed run, got %s (%s)", out.State, out.Reason)
	}
}

func TestRunTranscriptionFailureSkipsSegment(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.segment(matchstore.KindSecondHalf)
	h.stt.errs = map[string]error{"first": services.Wrap(services.ErrExternalService, "transcribing", "transcribe video", "gpu offline", nil)}
	h.analyzer.results["second"] = analyzer.Result{EventsDetected: 5}

	out := h.run(transcript.Options{})

	if !out.Completed() || out.TotalEvents != 5 {
		t.Fatalf("expected completed run with 5 events, got %s %d", out.State, out.TotalEvents)
	}
	if out.Segments[0].Status != SegmentFailed || out.Segments[0].Half != "first" {
		t.Fatalf("expected first half failed, got %+v", out.Segments[0])
	}
	found := false
	for i, e := range h.notifier.events {
		if e == notifications.EventSegmentFailed && h.notifier.payloads[i]["half"] == "first" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a segment notification naming the first half")
	}
}

func TestRunMisconfiguredServiceFailsOnlyTheSegment(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.segment(matchstore.KindSecondHalf)
	h.stt.errs = map[string]error{"first": services.Wrap(services.ErrConfiguration, "transcribing", "transcribe video", "server.url is not set", nil)}
	h.analyzer.errs = map[string]error{"second": services.Wrap(services.ErrConfiguration, "analyzing", "analyze match", "server.url is not set", nil)}

	out := h.run(transcript.Options{})

	if !out.Completed() {
		t.Fatalf("expected completed run, got %s (%s)", out.State, out.Reason)
	}
	for _, seg := range out.Segments {
		if seg.Status != SegmentFailed {
			t.Fatalf("expected every segment failed, got %+v", out.Segments)
		}
	}
	if h.match().Status != matchstore.StatusCompleted {
		t.Fatalf("expected finalize to run after segment failures")
	}
}

func TestRunAIStatusConfigurationErrorAborts(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.deps.AI = fakeAI{err: services.Wrap(services.ErrConfiguration, "preflight", "check ai status", "server.url is not set", nil)}

	out := h.run(transcript.Options{})
	if out.State != StateAborted || h.guard.calls != 0 {
		t.Fatalf("expected abort before sync, got %s (guard calls %d)", out.State, h.guard.calls)
	}
}

func TestRunAnalysisFailureContributesNothing(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.segment(matchstore.KindSecondHalf)
	h.analyzer.errs = map[string]error{"first": services.Wrap(services.ErrExternalService, "analyzing", "analyze match", "quota", nil)}
	h.analyzer.results["first"] = analyzer.Result{EventsDetected: 9}
	h.analyzer.results["second"] = analyzer.Result{EventsDetected: 1}

	out := h.run(transcript.Options{})
	if !out.Completed() || out.TotalEvents != 1 {
		t.Fatalf("expected completed run with 1 event, got %s %d", out.State, out.TotalEvents)
	}
}

func TestRunCancelledTranscriptionAborts(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	h.stt.errs = map[string]error{"first": services.Wrap(services.ErrCancelled, "transcribing", "transcribe video", "request cancelled", context.Canceled)}

	out := h.run(transcript.Options{})
	if out.State != StateAborted {
		t.Fatalf("expected abort on cancellation, got %s", out.State)
	}
	if h.match().Status != matchstore.StatusPending {
		t.Fatalf("match status must be untouched")
	}
}

func TestRunDropsSegmentsWithoutVideo(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedSegment(t, h.store, matchID, matchstore.KindFirstHalf, "")
	h.segment(matchstore.KindSecondHalf)

	out := h.run(transcript.Options{})
	if !out.Completed() {
		t.Fatalf("expected completed run, got %s", out.State)
	}
	if len(h.stt.calls) != 1 || h.stt.calls[0] != "second" {
		t.Fatalf("expected only the second half processed, got %v", h.stt.calls)
	}
	if out.Segments[0].Index != -1 || out.Segments[0].Status != SegmentSkipped {
		t.Fatalf("expected dropped segment report, got %+v", out.Segments[0])
	}
}

func TestRunWithoutVideosAborts(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedSegment(t, h.store, matchID, matchstore.KindFirstHalf, "")

	out := h.run(transcript.Options{})
	if out.State != StateAborted || !errors.Is(out.Err, services.ErrNotFound) {
		t.Fatalf("expected not-found abort, got %s %v", out.State, out.Err)
	}
}

func TestRunUnknownMatchAborts(t *testing.T) {
	h := newHarness(t)
	out := New(h.deps, h.settings).Run(context.Background(), Request{MatchID: "missing"})
	if out.State != StateAborted || h.guard.calls != 0 {
		t.Fatalf("expected abort before sync, got %s", out.State)
	}
}

func TestRunRejectsConcurrentRunForSameMatch(t *testing.T) {
	h := newHarness(t)
	h.segment(matchstore.KindFirstHalf)
	coord := New(h.deps, h.settings)

	release, err := coord.inflight.acquire(matchID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	out := coord.Run(context.Background(), Request{MatchID: matchID})
	if out.State != StateAborted || !errors.Is(out.Err, ErrRunInProgress) {
		t.Fatalf("expected in-progress rejection, got %s %v", out.State, out.Err)
	}
	if h.guard.calls != 0 {
		t.Fatalf("rejected run must not touch anything")
	}
	release()

	if out := coord.Run(context.Background(), Request{MatchID: matchID}); !out.Completed() {
		t.Fatalf("expected run after release to complete, got %s (%s)", out.State, out.Reason)
	}
}
