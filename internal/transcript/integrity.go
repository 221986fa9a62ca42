package transcript

import (
	"strings"
	"unicode/utf8"

	"arena/internal/matchstore"
)

// DefaultMinChars is the shortest transcript considered usable.
const DefaultMinChars = 50

// minTokenRunes is the exclusive lower bound on name token length.
const minTokenRunes = 3

// Integrity is the result of the team-name heuristic. It is best-effort: short
// single-word team names produce no tokens and always pass, and substring
// containment can match unrelated words.
type Integrity struct {
	HomeTokens []string
	AwayTokens []string
	Suspicious bool
}

// CheckIntegrity flags text that mentions neither team. Each team display name
// is split into lowercase words longer than three characters; when at least
// one team has tokens and the lowercase text contains none of them, the
// transcript is suspicious.
func CheckIntegrity(text string, home, away matchstore.Team) Integrity {
	result := Integrity{
		HomeTokens: NameTokens(home.DisplayName()),
		AwayTokens: NameTokens(away.DisplayName()),
	}
	if len(result.HomeTokens) == 0 && len(result.AwayTokens) == 0 {
		return result
	}
	lower := strings.ToLower(text)
	result.Suspicious = !containsAny(lower, result.HomeTokens) && !containsAny(lower, result.AwayTokens)
	return result
}

// NameTokens splits a team name into lowercase words longer than three characters.
func NameTokens(name string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if utf8.RuneCountInString(word) > minTokenRunes {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func containsAny(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// Usable reports whether text meets the minimum length. A minChars <= 0 uses
// DefaultMinChars.
func Usable(text string, minChars int) bool {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minChars
}
