// Package challenge implements the lifecycle state machine for a single
// challenge: pending → accepted|declined|countered|expired|cancelled,
// accepted → confirmed, confirmed → completed|cancelled. Transition
// functions validate first and only mutate on success, so a rejected
// transition always leaves the challenge in its original state.
package challenge

import (
	"time"

	"github.com/google/uuid"
	"github.com/pool-ladder/internal/domain"
)

// New creates a pending challenge with the response clock started.
// Eligibility must have been checked by the caller.
func New(bracket domain.Bracket, challengerID, defenderID string, challengeType domain.ChallengeType, details domain.MatchDetails, now time.Time) *domain.Challenge {
	return &domain.Challenge{
		ID:           uuid.New().String(),
		Bracket:      bracket,
		ChallengerID: challengerID,
		DefenderID:   defenderID,
		ProposerID:   challengerID,
		Type:         challengeType,
		Status:       domain.StatusPending,
		Details:      details,
		Deadline:     now.Add(domain.ResponseWindow),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// awaitingResponse reports whether the challenge has an open proposal.
func awaitingResponse(status domain.ChallengeStatus) bool {
	return status == domain.StatusPending || status == domain.StatusCountered
}

// respondent validates that playerID is the participant expected to answer
// the current proposal.
func respondent(ch *domain.Challenge, playerID, action string) error {
	if !ch.Participant(playerID) {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: action + " by non-participant"}
	}
	if playerID == ch.ProposerID {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: action + " own proposal"}
	}
	return nil
}

// Accept agrees to the current terms. Deliberately no deadline check here: a
// response processed before the expiry sweep wins over expiry.
func Accept(ch *domain.Challenge, playerID string, now time.Time) error {
	if !awaitingResponse(ch.Status) {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "accept"}
	}
	if err := respondent(ch, playerID, "accept"); err != nil {
		return err
	}
	ch.Status = domain.StatusAccepted
	ch.UpdatedAt = now
	return nil
}

// Decline rejects the current terms, terminally.
func Decline(ch *domain.Challenge, playerID string, now time.Time) error {
	if !awaitingResponse(ch.Status) {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "decline"}
	}
	if err := respondent(ch, playerID, "decline"); err != nil {
		return err
	}
	ch.Status = domain.StatusDeclined
	ch.UpdatedAt = now
	return nil
}

// Counter replaces the proposed terms and restarts the response clock, with
// the roles of proposer and respondent swapped.
func Counter(ch *domain.Challenge, playerID string, details domain.MatchDetails, now time.Time) error {
	if !awaitingResponse(ch.Status) {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "counter"}
	}
	if err := respondent(ch, playerID, "counter"); err != nil {
		return err
	}
	ch.Status = domain.StatusCountered
	ch.Details = details
	ch.ProposerID = playerID
	ch.Deadline = now.Add(domain.ResponseWindow)
	ch.UpdatedAt = now
	return nil
}

// Confirm locks in agreed terms after an accept.
func Confirm(ch *domain.Challenge, now time.Time) error {
	if ch.Status != domain.StatusAccepted {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "confirm"}
	}
	ch.Status = domain.StatusConfirmed
	ch.UpdatedAt = now
	return nil
}

// Complete records the reported result on a confirmed challenge. Completion
// is one-shot: re-submitting a result for a completed challenge is rejected,
// never reapplied.
func Complete(ch *domain.Challenge, result domain.Result, now time.Time) error {
	if ch.Status != domain.StatusConfirmed {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "complete"}
	}
	if result.WinnerID != ch.ChallengerID && result.WinnerID != ch.DefenderID {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "complete with non-participant winner"}
	}
	ch.Status = domain.StatusCompleted
	ch.Result = &result
	ch.CompletedAt = &now
	ch.UpdatedAt = now
	return nil
}

// Cancel withdraws an unconfirmed challenge; either party may cancel.
// Cancellation after confirmation is an administrative override, not a
// lifecycle transition.
func Cancel(ch *domain.Challenge, playerID string, now time.Time) error {
	if !awaitingResponse(ch.Status) {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "cancel"}
	}
	if !ch.Participant(playerID) {
		return &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "cancel by non-participant"}
	}
	ch.Status = domain.StatusCancelled
	ch.UpdatedAt = now
	return nil
}

// Expire transitions an overdue open challenge to expired. It reports
// whether a transition happened, so the sweep is idempotent and a second
// pass over an already-expired challenge is a no-op rather than an error.
func Expire(ch *domain.Challenge, now time.Time) (bool, error) {
	if !awaitingResponse(ch.Status) {
		if ch.Status == domain.StatusExpired {
			return false, nil
		}
		return false, &domain.ChallengeStateError{ChallengeID: ch.ID, From: ch.Status, Action: "expire"}
	}
	if !ch.Overdue(now) {
		return false, nil
	}
	ch.Status = domain.StatusExpired
	ch.UpdatedAt = now
	return true, nil
}
