package syncfn

import (
	"strings"

	"arena/internal/matchstore"
)

// TeamPayload is the flattened team shape accepted by the sync function.
type TeamPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ShortName      string `json:"short_name"`
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}

// Payload is the normalized match record submitted on fallback sync. It is
// also forwarded to the analysis service as match metadata.
type Payload struct {
	ID          string      `json:"id"`
	HomeTeam    TeamPayload `json:"home_team"`
	AwayTeam    TeamPayload `json:"away_team"`
	HomeScore   int         `json:"home_score"`
	AwayScore   int         `json:"away_score"`
	MatchDate   string      `json:"match_date,omitempty"`
	Competition string      `json:"competition,omitempty"`
	Venue       string      `json:"venue,omitempty"`
	Status      string      `json:"status"`
}

// NewPayload flattens a match snapshot. Status defaults to pending; scores
// are carried as stored, which is zero for a fresh match.
func NewPayload(m matchstore.Match) Payload {
	status := strings.TrimSpace(string(m.Status))
	if status == "" {
		status = string(matchstore.StatusPending)
	}
	return Payload{
		ID:          strings.TrimSpace(m.ID),
		HomeTeam:    flattenTeam(m.HomeTeam),
		AwayTeam:    flattenTeam(m.AwayTeam),
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
		MatchDate:   m.MatchDate,
		Competition: m.Competition,
		Venue:       m.Venue,
		Status:      status,
	}
}

func flattenTeam(t matchstore.Team) TeamPayload {
	return TeamPayload{
		ID:             strings.TrimSpace(t.ID),
		Name:           strings.TrimSpace(t.Name),
		ShortName:      strings.TrimSpace(t.ShortName),
		LogoURL:        strings.TrimSpace(t.LogoURL),
		PrimaryColor:   strings.TrimSpace(t.PrimaryColor),
		SecondaryColor: strings.TrimSpace(t.SecondaryColor),
	}
}

// Match converts the payload back into a store record.
func (p Payload) Match() matchstore.Match {
	status, err := matchstore.ParseStatus(p.Status)
	if err != nil {
		status = matchstore.StatusPending
	}
	return matchstore.Match{
		ID:          p.ID,
		HomeTeam:    p.HomeTeam.team(),
		AwayTeam:    p.AwayTeam.team(),
		HomeScore:   p.HomeScore,
		AwayScore:   p.AwayScore,
		MatchDate:   p.MatchDate,
		Competition: p.Competition,
		Venue:       p.Venue,
		Status:      status,
	}
}

func (t TeamPayload) team() matchstore.Team {
	return matchstore.Team{
		ID:             t.ID,
		Name:           t.Name,
		ShortName:      t.ShortName,
		LogoURL:        t.LogoURL,
		PrimaryColor:   t.PrimaryColor,
		SecondaryColor: t.SecondaryColor,
	}
}
