package match

import (
	"strings"
	"time"
)

const (
	SportNFL    = "NFL"
	SportNBA    = "NBA"
	SportMLB    = "MLB"
	SportSoccer = "Soccer"
)

const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinished  = "finished"
	StatusUnknown   = "unknown"
)

// Match is one game as reported by a single source. Identity is only stable
// within one aggregation pass unless the source assigns its own id.
type Match struct {
	ID         string     `json:"id"`
	Sport      string     `json:"sport"`
	HomeTeam   string     `json:"homeTeam"`
	AwayTeam   string     `json:"awayTeam"`
	KickoffAt  time.Time  `json:"kickoffTime"`
	Status     string     `json:"status"`
	RawStatus  string     `json:"rawStatus,omitempty"`
	HomeScore  *int       `json:"homeScore,omitempty"`
	AwayScore  *int       `json:"awayScore,omitempty"`
	Prediction string     `json:"prediction,omitempty"`
	Confidence *int       `json:"confidence,omitempty"`
	Source     string     `json:"source,omitempty"`
	FetchedAt  time.Time  `json:"-"`
}

// Sports lists every sport the engine aggregates, in fetch-unit order.
func Sports() []string {
	return []string{SportNFL, SportNBA, SportMLB, SportSoccer}
}

// NormalizeStatus folds a provider's free-form status string into the small
// shared vocabulary. Unrecognized values map to unknown, never an error.
func NormalizeStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "NS", "SCHED", "SCHEDULED", "TIMED", "PRE", "UPCOMING", "POSTPONED", "TBD":
		return StatusScheduled
	case "LIVE", "IN", "IN_PLAY", "IN PROGRESS", "IN_PROGRESS", "HT", "1H", "2H",
		"Q1", "Q2", "Q3", "Q4", "OT", "ET", "PAUSED", "HALFTIME":
		return StatusLive
	case "FT", "AET", "PEN", "FINISHED", "FINAL", "ENDED", "AOT", "POST":
		return StatusFinished
	case "":
		return StatusUnknown
	default:
		return StatusUnknown
	}
}

// IsLive reports whether the normalized status marks an in-progress game.
func (m Match) IsLive() bool {
	return m.Status == StatusLive
}

func IntPtr(v int) *int {
	return &v
}
