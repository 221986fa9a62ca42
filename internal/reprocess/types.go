package reprocess

import (
	"context"

	"arena/internal/analyzer"
	"arena/internal/matchstore"
	"arena/internal/services/remote"
	"arena/internal/transcript"
)

// State is a coordinator state.
type State string

const (
	StateIdle            State = "idle"
	StateSyncing         State = "syncing"
	StateFetchingVideos  State = "fetching_videos"
	StateLoadingExisting State = "loading_existing"
	StateResolving       State = "resolving"
	StateConfirming      State = "confirming"
	StateTranscribing    State = "transcribing"
	StateAnalyzing       State = "analyzing"
	StateFinalizing      State = "finalizing"
	StateDone            State = "done"
	StateAborted         State = "aborted"
)

// Request starts a run.
type Request struct {
	MatchID string
	Options transcript.Options
}

// SegmentStatus is how a segment ended.
type SegmentStatus string

const (
	SegmentAnalyzed SegmentStatus = "analyzed"
	SegmentSkipped  SegmentStatus = "skipped"
	SegmentFailed   SegmentStatus = "failed"
)

// SegmentReport summarizes one segment of a run. Index is -1 for segments
// dropped before iteration.
type SegmentReport struct {
	Index     int
	SegmentID string
	Half      string
	Source    transcript.Source
	Status    SegmentStatus
	Events    int
	Error     string
}

// Outcome is the result of a run. Run never returns an error; failures are
// described here.
type Outcome struct {
	RunID       string
	MatchID     string
	State       State
	TotalEvents int
	HomeScore   int
	AwayScore   int
	Segments    []SegmentReport
	Reason      string
	Err         error
	LogPath     string
}

// Completed reports whether the run reached done.
func (o Outcome) Completed() bool {
	return o.State == StateDone
}

// Prompt describes a transcript that failed the integrity heuristic.
type Prompt struct {
	MatchID  string
	Half     string
	HomeTeam string
	AwayTeam string
	Source   transcript.Source
	Excerpt  string
}

// Confirmer decides whether to continue with a suspicious transcript.
type Confirmer interface {
	ConfirmIntegrity(ctx context.Context, prompt Prompt) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt Prompt) (bool, error)

// ConfirmIntegrity implements Confirmer.
func (f ConfirmerFunc) ConfirmIntegrity(ctx context.Context, prompt Prompt) (bool, error) {
	return f(ctx, prompt)
}

// Store is the durable match store.
type Store interface {
	GetMatch(ctx context.Context, id string) (*matchstore.Match, error)
	UpdateMatch(ctx context.Context, id string, update matchstore.MatchUpdate) error
	GetVideoSegments(ctx context.Context, matchID string) ([]matchstore.Segment, error)
	ListSideFiles(ctx context.Context, matchID, folder string) ([]matchstore.SideFile, error)
}

// AuditLog records runs and their transitions.
type AuditLog interface {
	CreateRun(ctx context.Context, run matchstore.Run) error
	AppendRunEvent(ctx context.Context, ev matchstore.RunEvent) error
	FinishRun(ctx context.Context, run matchstore.Run) error
	MarkStaleRuns(ctx context.Context, matchID string) (int64, error)
}

// SyncGuard confirms the match exists in the durable store.
type SyncGuard interface {
	EnsureSynced(ctx context.Context, matchID string, snapshot matchstore.Match) bool
}

// VideoSyncer links uploaded videos as segments before they are fetched.
type VideoSyncer interface {
	SyncVideos(ctx context.Context, matchID string) (remote.SyncVideosResult, error)
}

// AIChecker reports which analysis providers are available.
type AIChecker interface {
	CheckAIStatus(ctx context.Context) (remote.AIStatus, error)
}

// Transcriber runs speech-to-text for one segment.
type Transcriber interface {
	Transcribe(ctx context.Context, matchID string, seg matchstore.Segment) (transcript.Transcript, error)
}

// Analyzer analyzes one segment.
type Analyzer interface {
	Analyze(ctx context.Context, in analyzer.Input) (analyzer.Result, error)
}

// Invalidator tells readers that cached views of a match are stale.
type Invalidator interface {
	InvalidateMatch(ctx context.Context, matchID string) error
}
