package remote

import "arena/internal/services/syncfn"

// EnsureResult reports whether the service ensured the match record.
type EnsureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SyncVideosResult reports how many storage uploads were linked as segments.
type SyncVideosResult struct {
	Success bool   `json:"success"`
	Synced  int    `json:"synced"`
	Error   string `json:"error,omitempty"`
}

// TranscribeRequest asks for a transcript of one video file.
type TranscribeRequest struct {
	VideoURL string `json:"videoUrl"`
	MatchID  string `json:"matchId"`
	Language string `json:"language"`
}

// TranscribeResult carries the produced transcript.
type TranscribeResult struct {
	Text string `json:"text"`
}

// AnalyzeRequest asks for tactical analysis of one half.
type AnalyzeRequest struct {
	MatchID         string         `json:"matchId"`
	Transcription   string         `json:"transcription"`
	HomeTeam        string         `json:"homeTeam"`
	AwayTeam        string         `json:"awayTeam"`
	GameStartMinute int            `json:"gameStartMinute"`
	GameEndMinute   int            `json:"gameEndMinute"`
	HalfType        string         `json:"halfType"`
	MatchData       syncfn.Payload `json:"matchData"`
}

// AnalyzeResult is the analysis response. Older deployments report
// eventsCreated instead of eventsDetected.
type AnalyzeResult struct {
	EventsDetected *int `json:"eventsDetected,omitempty"`
	EventsCreated  *int `json:"eventsCreated,omitempty"`
	HomeScore      *int `json:"homeScore,omitempty"`
	AwayScore      *int `json:"awayScore,omitempty"`
}

// Events returns the detected event count, falling back to eventsCreated.
func (r AnalyzeResult) Events() int {
	if r.EventsDetected != nil {
		return *r.EventsDetected
	}
	if r.EventsCreated != nil {
		return *r.EventsCreated
	}
	return 0
}

// AIStatus lists which AI providers the service has credentials for.
type AIStatus struct {
	AnyConfigured bool `json:"anyConfigured"`
	Lovable       bool `json:"lovable"`
	Gemini        bool `json:"gemini"`
	OpenAI        bool `json:"openai"`
	Ollama        bool `json:"ollama"`
}

// Providers returns the names of the configured providers.
func (s AIStatus) Providers() []string {
	var out []string
	if s.Lovable {
		out = append(out, "lovable")
	}
	if s.Gemini {
		out = append(out, "gemini")
	}
	if s.OpenAI {
		out = append(out, "openai")
	}
	if s.Ollama {
		out = append(out, "ollama")
	}
	return out
}

// Ready reports whether at least one provider can serve analysis.
func (s AIStatus) Ready() bool {
	return s.AnyConfigured || len(s.Providers()) > 0
}

// MatchPatch carries the fields a run writes back to the match record. Nil
// fields are left unchanged by the service.
type MatchPatch struct {
	Status    *string `json:"status,omitempty"`
	HomeScore *int    `json:"home_score,omitempty"`
	AwayScore *int    `json:"away_score,omitempty"`
}

// Ack is the service reply to a write that returns no data.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
