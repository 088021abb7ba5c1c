package domain

import "time"

// ChallengeType governs eligibility and outcome-driven ladder movement.
type ChallengeType string

const (
	TypeChallenge  ChallengeType = "challenge"
	TypeSmackDown  ChallengeType = "smackdown"
	TypeSmackBack  ChallengeType = "smackback"
	TypeLadderJump ChallengeType = "ladder-jump"
)

// Valid reports whether t is a known challenge type.
func (t ChallengeType) Valid() bool {
	switch t {
	case TypeChallenge, TypeSmackDown, TypeSmackBack, TypeLadderJump:
		return true
	}
	return false
}

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	StatusPending   ChallengeStatus = "pending"
	StatusAccepted  ChallengeStatus = "accepted"
	StatusDeclined  ChallengeStatus = "declined"
	StatusCountered ChallengeStatus = "countered"
	StatusConfirmed ChallengeStatus = "confirmed"
	StatusCompleted ChallengeStatus = "completed"
	StatusCancelled ChallengeStatus = "cancelled"
	StatusExpired   ChallengeStatus = "expired"
)

// Terminal reports whether the challenge can no longer change state.
func (s ChallengeStatus) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ResponseWindow is how long a defender has to respond to a challenge.
// A counter-proposal restarts the window.
const ResponseWindow = 72 * time.Hour

// ImmunityPeriod is how long a match winner is protected from new challenges.
const ImmunityPeriod = 7 * 24 * time.Hour

// MatchDetails are the proposed terms of a challenge match.
type MatchDetails struct {
	EntryFee       int         `json:"entry_fee"`
	RaceLength     int         `json:"race_length"`
	GameType       string      `json:"game_type"`
	TableSize      string      `json:"table_size"`
	Location       string      `json:"location"`
	PreferredDates []time.Time `json:"preferred_dates,omitempty"`
	// DefenderFeeShare is the defender's portion of the entry fee.
	// SmackDown and SmackBack callers pay full freight, defenders half.
	DefenderFeeShare float64 `json:"defender_fee_share"`
}

// DefaultMatchDetails returns the standard terms for a bracket.
func DefaultMatchDetails(b Bracket, t ChallengeType) MatchDetails {
	d := MatchDetails{
		GameType:         "9-ball",
		TableSize:        "9-foot",
		DefenderFeeShare: 1.0,
	}
	switch b {
	case Bracket500To549:
		d.EntryFee, d.RaceLength = 25, 7
	case Bracket550Plus:
		d.EntryFee, d.RaceLength = 50, 7
	default:
		d.EntryFee, d.RaceLength = 20, 5
	}
	if t == TypeSmackDown || t == TypeSmackBack {
		d.DefenderFeeShare = 0.5
	}
	return d
}

// Result is the reported outcome of a completed challenge.
type Result struct {
	WinnerID string `json:"winner_id"`
	Score    string `json:"score"`
}

// Challenge is a proposed match between two players on the same bracket.
// Once it reaches a terminal status it is immutable.
type Challenge struct {
	ID           string          `json:"id"`
	Bracket      Bracket         `json:"ladder_name"`
	ChallengerID string          `json:"challenger_id"`
	DefenderID   string          `json:"defender_id"`
	// ProposerID is whoever authored the current terms: the challenger at
	// creation, the countering party after a counter-proposal. The other
	// participant is the one expected to respond.
	ProposerID   string          `json:"proposer_id"`
	Type         ChallengeType   `json:"challenge_type"`
	Status       ChallengeStatus `json:"status"`
	Details      MatchDetails    `json:"match_details"`
	Deadline     time.Time       `json:"deadline"`
	Result       *Result         `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Participant reports whether playerID is one of the two parties.
func (c *Challenge) Participant(playerID string) bool {
	return playerID == c.ChallengerID || playerID == c.DefenderID
}

// Overdue reports whether the response deadline has passed at t.
func (c *Challenge) Overdue(t time.Time) bool {
	return t.After(c.Deadline)
}

// CreateChallengeRequest is an API request to issue a challenge.
type CreateChallengeRequest struct {
	ChallengerID string        `json:"challenger_id"`
	DefenderID   string        `json:"defender_id"`
	Type         ChallengeType `json:"challenge_type"`
	Details      *MatchDetails `json:"match_details,omitempty"`
}

// RespondRequest is an API request to accept, decline or counter a challenge.
type RespondRequest struct {
	PlayerID string        `json:"player_id"`
	Details  *MatchDetails `json:"match_details,omitempty"`
}

// ReportResultRequest is the trusted outcome input from match reporting.
type ReportResultRequest struct {
	ChallengeID string `json:"challenge_id"`
	WinnerID    string `json:"winner_id"`
	Score       string `json:"score"`
}
