package matchstore

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusLive      Status = "live"
)

// ParseStatus validates a status string. Blank input yields StatusPending.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", StatusPending:
		return StatusPending, nil
	case StatusAnalyzing:
		return StatusAnalyzing, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusLive:
		return StatusLive, nil
	default:
		return "", fmt.Errorf("unknown match status %q", value)
	}
}

// SegmentKind identifies which part of a match a video segment covers.
type SegmentKind int

// Kinds are declared in processing order: the full-match segment acts as a
// catch-all between the halves.
const (
	KindFirstHalf SegmentKind = iota + 1
	KindFull
	KindSecondHalf
)

// Kinds lists every segment kind in processing order.
func Kinds() []SegmentKind {
	return []SegmentKind{KindFirstHalf, KindFull, KindSecondHalf}
}

// ParseSegmentKind accepts the stored video type names and their short labels.
func ParseSegmentKind(value string) (SegmentKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "first_half", "first":
		return KindFirstHalf, nil
	case "full", "full_match":
		return KindFull, nil
	case "second_half", "second":
		return KindSecondHalf, nil
	default:
		return 0, fmt.Errorf("unknown segment kind %q", value)
	}
}

// String returns the stored video type name.
func (k SegmentKind) String() string {
	switch k {
	case KindFirstHalf:
		return "first_half"
	case KindFull:
		return "full"
	case KindSecondHalf:
		return "second_half"
	default:
		return "unknown"
	}
}

// Label returns the short half label used for side-files and analysis
// requests: first, second, or full.
func (k SegmentKind) Label() string {
	switch k {
	case KindFirstHalf:
		return "first"
	case KindSecondHalf:
		return "second"
	case KindFull:
		return "full"
	default:
		return ""
	}
}

// Valid reports whether k is one of the declared kinds.
func (k SegmentKind) Valid() bool {
	return k >= KindFirstHalf && k <= KindSecondHalf
}

// Team describes one side of a match.
type Team struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	ShortName      string `json:"short_name,omitempty" yaml:"short_name,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty" yaml:"secondary_color,omitempty"`
	LogoURL        string `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
}

// DisplayName prefers the full name and falls back to the short name.
func (t Team) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return strings.TrimSpace(t.ShortName)
}

// Match is the durable match record.
type Match struct {
	ID           string    `json:"id" yaml:"id"`
	HomeTeam     Team      `json:"home_team" yaml:"home_team"`
	AwayTeam     Team      `json:"away_team" yaml:"away_team"`
	HomeScore    int       `json:"home_score" yaml:"home_score"`
	AwayScore    int       `json:"away_score" yaml:"away_score"`
	MatchDate    string    `json:"match_date,omitempty" yaml:"match_date,omitempty"`
	Competition  string    `json:"competition,omitempty" yaml:"competition,omitempty"`
	Venue        string    `json:"venue,omitempty" yaml:"venue,omitempty"`
	Status       Status    `json:"status" yaml:"status"`
	CacheVersion int64     `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// MatchUpdate lists the fields a reprocess run may change. Nil fields are left
// untouched.
type MatchUpdate struct {
	Status    *Status
	HomeScore *int
	AwayScore *int
}

// Segment is one uploaded video file belonging to a match.
type Segment struct {
	ID              string      `json:"id"`
	MatchID         string      `json:"match_id"`
	Kind            SegmentKind `json:"-"`
	FileURL         string      `json:"file_url"`
	StartMinute     *int        `json:"start_minute,omitempty"`
	EndMinute       *int        `json:"end_minute,omitempty"`
	DurationSeconds *int        `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// SideFile is a text artifact stored alongside a match, such as a transcript.
type SideFile struct {
	MatchID   string
	Folder    string
	Name      string
	Label     string
	Content   string
	UpdatedAt time.Time
}

// TranscriptFolder is the side-file folder holding transcripts.
const TranscriptFolder = "texts"

// RunOutcome is the terminal result of a reprocess run.
type RunOutcome string

const (
	OutcomeRunning   RunOutcome = "running"
	OutcomeCompleted RunOutcome = "completed"
	OutcomeAborted   RunOutcome = "aborted"
)

// Run is one audited reprocess run.
type Run struct {
	ID          string
	MatchID     string
	State       string
	Outcome     RunOutcome
	TotalEvents int
	HomeScore   int
	AwayScore   int
	Error       string
	LogPath     string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// RunEvent is one entry of a run's structured event log.
type RunEvent struct {
	RunID        string
	Seq          int64
	State        string
	SegmentIndex int
	Stage        string
	Percent      int
	Message      string
	CreatedAt    time.Time
}

// Stats summarizes store contents for the status command.
type Stats struct {
	Matches      map[Status]int
	Segments     int
	SideFiles    int
	Runs         map[RunOutcome]int
	LastRunStart *time.Time
}
