package testsupport

import (
	"context"
	"fmt"
	"testing"

	"arena/internal/config"
	"arena/internal/matchstore"
)

// MustOpenStore opens a matchstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *matchstore.Store {
	t.Helper()

	store, err := matchstore.Open(cfg)
	if err != nil {
		t.Fatalf("matchstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SampleMatch returns a pending match between two teams with tokenizable names.
func SampleMatch(id string) matchstore.Match {
	return matchstore.Match{
		ID: id,
		HomeTeam: matchstore.Team{
			ID:           "team-home",
			Name:         "Flamengo Rubro",
			ShortName:    "FLA",
			PrimaryColor: "#c00",
		},
		AwayTeam: matchstore.Team{
			ID:           "team-away",
			Name:         "Palmeiras Verde",
			ShortName:    "PAL",
			PrimaryColor: "#060",
		},
		MatchDate:   "2026-09-12",
		Competition: "Brasileirao",
		Venue:       "Maracana",
		Status:      matchstore.StatusPending,
	}
}

// SeedMatch stores m and returns the persisted copy.
func SeedMatch(t testing.TB, store *matchstore.Store, m matchstore.Match) *matchstore.Match {
	t.Helper()

	ctx := context.Background()
	if err := store.UpsertMatch(ctx, m); err != nil {
		t.Fatalf("UpsertMatch: %v", err)
	}
	stored, err := store.GetMatch(ctx, m.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetMatch after seed: %v (%v)", err, stored)
	}
	return stored
}

// SeedSegment stores a segment of the given kind for matchID. An empty url
// stores a segment without a video file.
func SeedSegment(t testing.TB, store *matchstore.Store, matchID string, kind matchstore.SegmentKind, url string) matchstore.Segment {
	t.Helper()

	seg := matchstore.Segment{
		ID:      fmt.Sprintf("%s-%s", matchID, kind),
		MatchID: matchID,
		Kind:    kind,
		FileURL: url,
	}
	if err := store.UpsertSegment(context.Background(), seg); err != nil {
		t.Fatalf("UpsertSegment: %v", err)
	}
	return seg
}
