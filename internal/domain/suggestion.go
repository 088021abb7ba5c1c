package domain

import "time"

// RankedSuggestion is one Smart Match candidate, grouped per opponent.
// Confidence is a percentage in [10, 95].
type RankedSuggestion struct {
	PlayerID          string          `json:"player_id"`
	Name              string          `json:"name"`
	Position          int             `json:"position"`
	Bracket           Bracket         `json:"ladder_name"`
	Confidence        int             `json:"confidence"`
	Reason            string          `json:"reason"`
	MatchTypes        []ChallengeType `json:"match_types"`
	AvailabilityScore float64         `json:"availability_score"`
	LocationScore     float64         `json:"location_score"`
	ScheduleScore     float64         `json:"schedule_score"`
	PerfectMatch      bool            `json:"perfect_match"`
}

// SuggestionOutcome records what happened after a suggestion was surfaced,
// keyed by the suggested opponent. It feeds the learned-preference bonus.
type SuggestionOutcome string

const (
	OutcomeAccepted   SuggestionOutcome = "accepted"
	OutcomeDeclined   SuggestionOutcome = "declined"
	OutcomePlayed     SuggestionOutcome = "played"
	OutcomeNoResponse SuggestionOutcome = "no-response"
)

// Valid reports whether o is a known outcome.
func (o SuggestionOutcome) Valid() bool {
	switch o {
	case OutcomeAccepted, OutcomeDeclined, OutcomePlayed, OutcomeNoResponse:
		return true
	}
	return false
}

// SuggestionFeedback is one suggestion→outcome pair.
type SuggestionFeedback struct {
	CandidateID  string            `json:"candidate_id"`
	ChallengerID string            `json:"challenger_id"`
	Outcome      SuggestionOutcome `json:"outcome"`
	RecordedAt   time.Time         `json:"recorded_at"`
}
