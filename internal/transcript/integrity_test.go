package transcript

import (
	"strings"
	"testing"

	"arena/internal/matchstore"
)

func TestCheckIntegrity(t *testing.T) {
	home := matchstore.Team{Name: "Flamengo Rubro"}
	away := matchstore.Team{Name: "Palmeiras Verde"}
	tests := []struct {
		name       string
		text       string
		home, away matchstore.Team
		suspicious bool
	}{
		{"mentions neither team", "A quiet game between two unnamed sides with few chances.", home, away, true},
		{"mentions home team", "FLAMENGO press high from the first whistle.", home, away, false},
		{"mentions away team only", "verde shirts everywhere in the stands tonight.", home, away, false},
		{"short names yield no tokens", "Nothing relevant here at all.", matchstore.Team{Name: "FC"}, matchstore.Team{Name: "AEK"}, false},
		{"one team with tokens is enough to check", "Nothing relevant here at all.", matchstore.Team{Name: "FC"}, away, true},
		{"short name fallback", "santos attack", matchstore.Team{ShortName: "Santos"}, matchstore.Team{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckIntegrity(tt.text, tt.home, tt.away)
			if got.Suspicious != tt.suspicious {
				t.Fatalf("Suspicious = %v, want %v (tokens %v / %v)", got.Suspicious, tt.suspicious, got.HomeTokens, got.AwayTokens)
			}
		})
	}
}

func TestNameTokens(t *testing.T) {
	got := NameTokens("São Paulo FC Atlético")
	want := []string{"paulo", "atlético"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("NameTokens = %v, want %v", got, want)
	}
}

func TestUsable(t *testing.T) {
	if Usable(strings.Repeat("a", 49), 0) {
		t.Fatalf("49 chars should be unusable")
	}
	if !Usable(strings.Repeat("a", 50), 0) {
		t.Fatalf("50 chars should be usable")
	}
	if Usable("   "+strings.Repeat("a", 10)+"   ", 11) {
		t.Fatalf("surrounding whitespace must not count")
	}
	if !Usable("short", 5) {
		t.Fatalf("custom minimum should apply")
	}
}
