package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrBracketNotFound     = errors.New("ladder bracket not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
	ErrConcurrencyConflict = errors.New("concurrent update in progress, retry")
	ErrBracketFrozen       = errors.New("ladder bracket blocked pending manual reconciliation")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrBracketNotFound)
}

// EligibilityRule names the first rule that failed an eligibility check.
type EligibilityRule string

const (
	RuleBracketMismatch  EligibilityRule = "bracket_mismatch"
	RuleNoUnifiedAccount EligibilityRule = "no_unified_account"
	RuleSelfChallenge    EligibilityRule = "self_challenge"
	RuleInactive         EligibilityRule = "inactive"
	RuleImmunity         EligibilityRule = "immunity"
	RulePositionRange    EligibilityRule = "position_range"
	RuleTypeNotAllowed   EligibilityRule = "type_not_allowed"
)

// IneligibleChallengeError reports why a challenge may not be created.
// The reason is authored for end users and must not be downgraded.
type IneligibleChallengeError struct {
	Rule   EligibilityRule
	Reason string
}

func (e *IneligibleChallengeError) Error() string {
	return fmt.Sprintf("challenge not allowed: %s", e.Reason)
}

// ChallengeStateError reports an invalid lifecycle transition. The
// challenge's original state is preserved.
type ChallengeStateError struct {
	ChallengeID string
	From        ChallengeStatus
	Action      string
}

func (e *ChallengeStateError) Error() string {
	return fmt.Sprintf("challenge %s: cannot %s from status %q", e.ChallengeID, e.Action, e.From)
}

// LadderInvariantError means a post-mutation bracket was not a clean 1..N
// permutation. It indicates a mutator bug: the mutation is aborted, the
// pre-mutation state stays committed and the bracket is frozen.
type LadderInvariantError struct {
	Bracket Bracket
	Detail  string
}

func (e *LadderInvariantError) Error() string {
	return fmt.Sprintf("ladder invariant violated on %s: %s", e.Bracket, e.Detail)
}
