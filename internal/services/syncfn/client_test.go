package syncfn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arena/internal/matchstore"
	"arena/internal/services"
)

func sampleMatch() matchstore.Match {
	return matchstore.Match{
		ID:       "m-1",
		HomeTeam: matchstore.Team{ID: "h", Name: " Home FC ", ShortName: "HFC", LogoURL: "https://logo/h.png", PrimaryColor: "#111"},
		AwayTeam: matchstore.Team{ID: "a", Name: "Away United", SecondaryColor: "#222"},
	}
}

func TestNewPayloadDefaults(t *testing.T) {
	p := NewPayload(sampleMatch())
	if p.Status != "pending" {
		t.Fatalf("expected pending status default, got %q", p.Status)
	}
	if p.HomeScore != 0 || p.AwayScore != 0 {
		t.Fatalf("expected zero scores, got %d-%d", p.HomeScore, p.AwayScore)
	}
	if p.HomeTeam.Name != "Home FC" || p.HomeTeam.LogoURL != "https://logo/h.png" {
		t.Fatalf("unexpected flattened home team: %+v", p.HomeTeam)
	}
	if p.AwayTeam.SecondaryColor != "#222" {
		t.Fatalf("unexpected flattened away team: %+v", p.AwayTeam)
	}
	back := p.Match()
	if back.HomeTeam.ID != "h" || back.Status != matchstore.StatusPending {
		t.Fatalf("round trip lost fields: %+v", back)
	}
}

func TestSyncPostsPayloadWithServiceKey(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Fatalf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Result{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 0)
	if _, err := client.Sync(context.Background(), NewPayload(sampleMatch())); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if got.ID != "m-1" || got.HomeTeam.ID != "h" || got.AwayTeam.ID != "a" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSyncReportsFunctionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{Success: false, Error: "team missing"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", 0)
	_, err := client.Sync(context.Background(), NewPayload(sampleMatch()))
	if err == nil || !strings.Contains(err.Error(), "team missing") {
		t.Fatalf("expected function error, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service marker, got %v", err)
	}
}

func TestSyncHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":"bad key"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "wrong", 0).Sync(context.Background(), NewPayload(sampleMatch()))
	if err == nil || !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected http 401 error, got %v", err)
	}
}

func TestSyncUnconfigured(t *testing.T) {
	_, err := NewClient("", "", 0).Sync(context.Background(), NewPayload(sampleMatch()))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
