package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestMatchImportAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := sampleDocument("m-1")
	doc.Segments[1].StartMinute = intRef(46)
	doc.Segments[1].EndMinute = intRef(95)
	doc.Transcripts = map[string]string{"first": "Flamengo Rubro press high from kick-off."}
	importMatch(t, env, doc)

	out, _, err := runCLI(t, env, "match", "show", "m-1")
	if err != nil {
		t.Fatalf("match show: %v", err)
	}
	requireContains(t, out, "Flamengo Rubro vs Palmeiras Verde")
	requireContains(t, out, "first_half")
	requireContains(t, out, "46-95")
	requireContains(t, out, "transcript-first.txt")

	out, _, err = runCLI(t, env, "match", "show", "m-1", "--json")
	if err != nil {
		t.Fatalf("match show --json: %v", err)
	}
	var shown matchDocument
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode match document: %v", err)
	}
	if len(shown.Segments) != 2 || shown.Segments[0].VideoType != "first_half" {
		t.Fatalf("unexpected segments: %+v", shown.Segments)
	}
	if shown.Transcripts["first"] != doc.Transcripts["first"] {
		t.Fatalf("unexpected transcripts: %+v", shown.Transcripts)
	}

	out, _, err = runCLI(t, env, "match", "list")
	if err != nil {
		t.Fatalf("match list: %v", err)
	}
	requireContains(t, out, "m-1")
	requireContains(t, out, "pending")
}

func TestMatchImportYAML(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "derby.yaml")
	doc := `match:
  id: derby-1
  home_team: {id: t-1, name: Flamengo Rubro}
  away_team: {id: t-2, name: Palmeiras Verde, short_name: PAL}
  status: pending
segments:
  - id: derby-1-full
    video_type: full
    file_url: https://videos.test/derby-1/full.mp4
    start_minute: 0
    end_minute: 90
transcripts:
  full: Flamengo Rubro and Palmeiras Verde kick off at the Maracana.
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	out, _, err := runCLI(t, env, "match", "import", path)
	if err != nil {
		t.Fatalf("match import: %v", err)
	}
	requireContains(t, out, "Imported match derby-1 (1 segments, 1 transcripts)")

	out, _, err = runCLI(t, env, "match", "show", "derby-1")
	if err != nil {
		t.Fatalf("match show: %v", err)
	}
	requireContains(t, out, "Flamengo Rubro vs Palmeiras Verde")
	requireContains(t, out, "0-90")
	requireContains(t, out, "transcript-full.txt")
}

func TestMatchImportRejectsUnknownSegmentKind(t *testing.T) {
	env := setupCLITestEnv(t)
	doc := sampleDocument("m-1")
	doc.Segments[0].VideoType = "extra_time"
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(env.baseDir, "bad.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := runCLI(t, env, "match", "import", path); err == nil {
		t.Fatal("expected unknown segment kind to fail")
	}
}

func TestMatchImportRequiresID(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "empty.json")
	if err := os.WriteFile(path, []byte(`{"match": {"status": "pending"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := runCLI(t, env, "match", "import", path)
	if err == nil {
		t.Fatal("expected missing id to fail")
	}
	requireContains(t, err.Error(), "match.id is required")
}

func TestMatchShowUnknown(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "match", "show", "nope"); err == nil {
		t.Fatal("expected unknown match to fail")
	}
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		start, end *int
		want       string
	}{
		{nil, nil, "default"},
		{intRef(0), intRef(45), "0-45"},
		{intRef(45), nil, "45-?"},
	}
	for _, tc := range tests {
		if got := minutes(tc.start, tc.end); got != tc.want {
			t.Fatalf("minutes() = %q, want %q", got, tc.want)
		}
	}
}
