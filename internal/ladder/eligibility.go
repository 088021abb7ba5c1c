package ladder

import (
	"fmt"
	"time"

	"github.com/pool-ladder/internal/domain"
)

// Standard challenge reaches up to 4 spots above the challenger; a SmackDown
// reaches up to 5 spots below. Ladder jump is open to the top 3 of the
// lowest bracket, targeting the bottom 4 of a higher one.
const (
	MaxChallengeReach   = 4
	MaxSmackDownReach   = 5
	LadderJumpTopCut    = 3
	LadderJumpBottomCut = 4
)

// Eligibility is the outcome of evaluating one challenger/defender pair.
// AllowedTypes holds at most one of challenge/smackdown plus any additive
// earned types (smackback, ladder-jump).
type Eligibility struct {
	Allowed      bool
	AllowedTypes []domain.ChallengeType
	Rule         domain.EligibilityRule
	Reason       string
}

// Permits reports whether the given type was granted.
func (e Eligibility) Permits(t domain.ChallengeType) bool {
	for _, allowed := range e.AllowedTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// Evaluate decides whether challenger may challenge defender and under which
// types. Pure function of the two player snapshots: safe to call concurrently
// and to memoize per (challenger, defender, bracket version).
// defenderBracketSize is the defender's bracket population, used only for the
// cross-bracket ladder-jump bottom cut; pass 0 when unknown to skip that cut.
func Evaluate(challenger, defender *domain.Player, defenderBracketSize int, now time.Time) Eligibility {
	if challenger.Bracket != defender.Bracket {
		return evaluateLadderJump(challenger, defender, defenderBracketSize, now)
	}

	if fail, ok := commonChecks(challenger, defender, now); !ok {
		return fail
	}

	// diff < 0: defender ranked above the challenger.
	diff := defender.Position - challenger.Position

	var types []domain.ChallengeType
	switch {
	case diff < 0 && diff >= -MaxChallengeReach:
		types = append(types, domain.TypeChallenge)
	case diff > 0 && diff <= MaxSmackDownReach:
		types = append(types, domain.TypeSmackDown)
	}

	// A SmackDown defender who won earns a shot at first place.
	if challenger.SmackBackEligible && defender.Position == 1 {
		types = append(types, domain.TypeSmackBack)
	}

	if len(types) == 0 {
		return Eligibility{
			Rule:   domain.RulePositionRange,
			Reason: "position difference outside allowed range",
		}
	}
	return Eligibility{Allowed: true, AllowedTypes: types}
}

// evaluateLadderJump handles the cross-bracket promotion path: the top 3 of
// the lowest bracket may call out the bottom 4 of a higher bracket.
func evaluateLadderJump(challenger, defender *domain.Player, defenderBracketSize int, now time.Time) Eligibility {
	jumpTargets := challenger.Bracket.Above()
	targetOK := false
	for _, b := range jumpTargets {
		if defender.Bracket == b {
			targetOK = true
			break
		}
	}
	if challenger.Bracket != domain.Bracket499Under || !targetOK {
		return Eligibility{
			Rule:   domain.RuleBracketMismatch,
			Reason: "players are on different ladder brackets",
		}
	}

	if fail, ok := commonChecks(challenger, defender, now); !ok {
		return fail
	}

	if challenger.Position > LadderJumpTopCut {
		return Eligibility{
			Rule:   domain.RulePositionRange,
			Reason: fmt.Sprintf("ladder jump requires a top-%d position in the %s bracket", LadderJumpTopCut, domain.Bracket499Under),
		}
	}
	if defenderBracketSize > 0 && defender.Position <= defenderBracketSize-LadderJumpBottomCut {
		return Eligibility{
			Rule:   domain.RulePositionRange,
			Reason: fmt.Sprintf("ladder jump may only target the bottom %d of the %s bracket", LadderJumpBottomCut, defender.Bracket),
		}
	}

	return Eligibility{Allowed: true, AllowedTypes: []domain.ChallengeType{domain.TypeLadderJump}}
}

// commonChecks runs the shared gate rules in their reported order. The first
// failing rule becomes the eligibility reason.
func commonChecks(challenger, defender *domain.Player, now time.Time) (Eligibility, bool) {
	if !challenger.UnifiedAccount || !defender.UnifiedAccount {
		return Eligibility{
			Rule:   domain.RuleNoUnifiedAccount,
			Reason: "both players need a verified unified account to participate",
		}, false
	}
	if challenger.ID == defender.ID {
		return Eligibility{
			Rule:   domain.RuleSelfChallenge,
			Reason: "players cannot challenge themselves",
		}, false
	}
	if !challenger.Active || !defender.Active {
		return Eligibility{
			Rule:   domain.RuleInactive,
			Reason: "both players must be active on the ladder",
		}, false
	}
	if defender.Immune(now) {
		return Eligibility{
			Rule:   domain.RuleImmunity,
			Reason: fmt.Sprintf("%s has challenge immunity until %s", defender.Name(), defender.ImmunityUntil.Format("Jan 2")),
		}, false
	}
	return Eligibility{}, true
}

// TypeReason explains why a specific requested type is not granted for a
// pair that may still be eligible under other types.
func TypeReason(t domain.ChallengeType) string {
	switch t {
	case domain.TypeSmackBack:
		return "a smackback must be earned by winning as a smackdown defender"
	case domain.TypeLadderJump:
		return "ladder jump is only available across brackets"
	default:
		return "position difference outside allowed range"
	}
}
