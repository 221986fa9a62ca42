package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"arena/internal/matchstore"
	"arena/internal/services/remote"
	"arena/internal/services/syncfn"
)

// SyncFunctionPath is the route the fake serves for the fallback sync function.
const SyncFunctionPath = "/functions/v1/sync-match"

// FakeServer emulates the processing service and the fallback sync function.
// Matches added with Register only become readable once ensured or synced.
type FakeServer struct {
	*httptest.Server

	mu          sync.Mutex
	registered  map[string]syncfn.Payload
	durable     map[string]syncfn.Payload
	transcripts map[string]string
	analyses    []remote.AnalyzeResult
	analyzeReqs []remote.AnalyzeRequest
	requests    []string
	ensureFails bool
	updateFails bool
	invalidated map[string]int
	aiStatus    remote.AIStatus
}

// NewFakeServer starts a fake with one AI provider configured and registers
// cleanup on t.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	f := &FakeServer{
		registered:  map[string]syncfn.Payload{},
		durable:     map[string]syncfn.Payload{},
		transcripts: map[string]string{},
		invalidated: map[string]int{},
		aiStatus:    remote.AIStatus{AnyConfigured: true, Gemini: true},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeFakeJSON(w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/ai-status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.aiStatus
		f.mu.Unlock()
		writeFakeJSON(w, status)
	})
	mux.HandleFunc("POST /api/matches/{id}/ensure", f.handleEnsure)
	mux.HandleFunc("GET /api/matches/{id}", f.handleGetMatch)
	mux.HandleFunc("PATCH /api/matches/{id}", f.handleUpdateMatch)
	mux.HandleFunc("POST /api/matches/{id}/invalidate-cache", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.invalidated[r.PathValue("id")]++
		f.mu.Unlock()
		writeFakeJSON(w, remote.Ack{Success: true})
	})
	mux.HandleFunc("POST /api/matches/{id}/sync-videos", func(w http.ResponseWriter, r *http.Request) {
		writeFakeJSON(w, remote.SyncVideosResult{Success: true})
	})
	mux.HandleFunc("POST /api/transcribe-large-video", f.handleTranscribe)
	mux.HandleFunc("POST /api/analyze-match", f.handleAnalyze)
	mux.HandleFunc("POST "+SyncFunctionPath, f.handleSync)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Close)
	return f
}

// SyncFunctionURL returns the fallback sync function endpoint.
func (f *FakeServer) SyncFunctionURL() string {
	return f.URL + SyncFunctionPath
}

// Register makes m known to the service without writing it durably.
func (f *FakeServer) Register(m matchstore.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[m.ID] = syncfn.NewPayload(m)
}

// SetEnsureFails makes the ensure endpoint report failure.
func (f *FakeServer) SetEnsureFails(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureFails = fail
}

// SetAIStatus sets the provider status returned by the ai-status endpoint.
func (f *FakeServer) SetAIStatus(status remote.AIStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aiStatus = status
}

// SetTranscript sets the speech-to-text result for a video URL.
func (f *FakeServer) SetTranscript(videoURL, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts[videoURL] = text
}

// QueueAnalysis appends a result returned by the next analyze call. Once the
// queue is empty, analyze reports zero events.
func (f *FakeServer) QueueAnalysis(result remote.AnalyzeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, result)
}

// SetUpdateFails makes match updates report failure.
func (f *FakeServer) SetUpdateFails(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateFails = fail
}

// DurableMatch returns the durable record for id.
func (f *FakeServer) DurableMatch(id string) (matchstore.Match, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.durable[id]
	if !ok {
		return matchstore.Match{}, false
	}
	return payload.Match(), true
}

// Invalidations counts cache invalidation calls for id.
func (f *FakeServer) Invalidations(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated[id]
}

// Durable reports whether id has been written to the durable store.
func (f *FakeServer) Durable(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.durable[id]
	return ok
}

// Requests returns "METHOD /path" for every request served so far.
func (f *FakeServer) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// AnalyzeRequests returns every decoded analyze request.
func (f *FakeServer) AnalyzeRequests() []remote.AnalyzeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.AnalyzeRequest(nil), f.analyzeReqs...)
}

func (f *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) handleEnsure(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureFails {
		writeFakeJSON(w, remote.EnsureResult{Success: false, Error: "ensure disabled"})
		return
	}
	payload, ok := f.registered[id]
	if !ok {
		writeFakeJSON(w, remote.EnsureResult{Success: false, Error: "match not found"})
		return
	}
	f.durable[id] = payload
	writeFakeJSON(w, remote.EnsureResult{Success: true})
}

func (f *FakeServer) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	payload, ok := f.durable[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	writeFakeJSON(w, payload)
}

func (f *FakeServer) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	var patch remote.MatchPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateFails {
		writeFakeJSON(w, remote.Ack{Success: false, Error: "update disabled"})
		return
	}
	payload, ok := f.durable[id]
	if !ok {
		writeFakeStatus(w, http.StatusNotFound, remote.Ack{Success: false, Error: "not found"})
		return
	}
	if patch.Status != nil {
		payload.Status = *patch.Status
	}
	if patch.HomeScore != nil {
		payload.HomeScore = *patch.HomeScore
	}
	if patch.AwayScore != nil {
		payload.AwayScore = *patch.AwayScore
	}
	f.durable[id] = payload
	writeFakeJSON(w, remote.Ack{Success: true})
}

func (f *FakeServer) handleSync(w http.ResponseWriter, r *http.Request) {
	var payload syncfn.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeFakeStatus(w, http.StatusBadRequest, syncfn.Result{Success: false, Error: "invalid payload"})
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeFakeStatus(w, http.StatusUnauthorized, syncfn.Result{Success: false, Error: "missing service key"})
		return
	}
	f.mu.Lock()
	f.durable[payload.ID] = payload
	f.mu.Unlock()
	writeFakeJSON(w, syncfn.Result{Success: true})
}

func (f *FakeServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req remote.TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	text, ok := f.transcripts[req.VideoURL]
	f.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"transcription failed"}`, http.StatusUnprocessableEntity)
		return
	}
	writeFakeJSON(w, remote.TranscribeResult{Text: text})
}

func (f *FakeServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req remote.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.analyzeReqs = append(f.analyzeReqs, req)
	var result remote.AnalyzeResult
	if len(f.analyses) > 0 {
		result = f.analyses[0]
		f.analyses = f.analyses[1:]
	} else {
		zero := 0
		result.EventsDetected = &zero
	}
	f.mu.Unlock()
	writeFakeJSON(w, result)
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	writeFakeStatus(w, http.StatusOK, v)
}

func writeFakeStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
