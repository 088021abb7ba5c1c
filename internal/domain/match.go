package domain

import "time"

// Match is the immutable historical record appended when a challenge
// completes. Position snapshots are taken immediately before and after the
// ladder mutation for both participants.
type Match struct {
	ID           string        `json:"id"`
	ChallengeID  string        `json:"challenge_id"`
	Bracket      Bracket       `json:"ladder_name"`
	ChallengerID string        `json:"challenger_id"`
	DefenderID   string        `json:"defender_id"`
	WinnerID     string        `json:"winner_id"`
	Score        string        `json:"score"`
	MatchType    ChallengeType `json:"match_type"`
	Venue        string        `json:"venue,omitempty"`

	ChallengerPosBefore int `json:"challenger_pos_before"`
	ChallengerPosAfter  int `json:"challenger_pos_after"`
	DefenderPosBefore   int `json:"defender_pos_before"`
	DefenderPosAfter    int `json:"defender_pos_after"`

	CompletedAt time.Time `json:"completed_at"`
}

// Won reports whether playerID won this match.
func (m *Match) Won(playerID string) bool {
	return m.WinnerID == playerID
}
