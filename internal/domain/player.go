package domain

import "time"

// Bracket identifies one of the independent ladder skill divisions.
type Bracket string

const (
	Bracket499Under Bracket = "499-under"
	Bracket500To549 Bracket = "500-549"
	Bracket550Plus  Bracket = "550-plus"
)

// Brackets lists all divisions from lowest to highest skill.
var Brackets = []Bracket{Bracket499Under, Bracket500To549, Bracket550Plus}

// Valid reports whether b is a known division.
func (b Bracket) Valid() bool {
	switch b {
	case Bracket499Under, Bracket500To549, Bracket550Plus:
		return true
	}
	return false
}

// Above returns the divisions ranked higher than b, lowest first.
func (b Bracket) Above() []Bracket {
	for i, known := range Brackets {
		if known == b {
			return Brackets[i+1:]
		}
	}
	return nil
}

// TimeWindow is a free time slot within a single day, in minutes since
// midnight (half-open interval).
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two windows share any time.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	start := w.Start
	if o.Start > start {
		start = o.Start
	}
	end := w.End
	if o.End < end {
		end = o.End
	}
	return start < end
}

// Availability maps weekdays to the free time windows a player declared.
type Availability map[time.Weekday][]TimeWindow

// Empty reports whether no windows are declared on any day.
func (a Availability) Empty() bool {
	for _, windows := range a {
		if len(windows) > 0 {
			return false
		}
	}
	return true
}

// Player is a ladder participant. Position is the 1-based rank within the
// player's bracket; lower number means higher rank.
type Player struct {
	ID                string       `json:"id"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	Email             string       `json:"email,omitempty"`
	Bracket           Bracket      `json:"ladder_name"`
	Position          int          `json:"position"`
	FargoRate         int          `json:"fargo_rate,omitempty"`
	Wins              int          `json:"wins"`
	Losses            int          `json:"losses"`
	ImmunityUntil     *time.Time   `json:"immunity_until,omitempty"`
	Active            bool         `json:"is_active"`
	UnifiedAccount    bool         `json:"has_unified_account"`
	SmackBackEligible bool         `json:"smackback_eligible,omitempty"`
	Availability      Availability `json:"availability,omitempty"`
	Locations         []string     `json:"locations,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Name returns the player's display name.
func (p *Player) Name() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Immune reports whether the player is protected from new challenges at t.
func (p *Player) Immune(t time.Time) bool {
	return p.ImmunityUntil != nil && p.ImmunityUntil.After(t)
}

// TotalMatches returns the number of decided matches on record.
func (p *Player) TotalMatches() int {
	return p.Wins + p.Losses
}

// WinRate returns the fraction of matches won, or 0 with no matches.
func (p *Player) WinRate() float64 {
	total := p.TotalMatches()
	if total == 0 {
		return 0
	}
	return float64(p.Wins) / float64(total)
}

// StandingEntry is one row of a bracket's published standings.
type StandingEntry struct {
	Position int    `json:"position"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}
