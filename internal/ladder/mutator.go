package ladder

import (
	"fmt"
	"time"

	"github.com/pool-ladder/internal/domain"
)

// SmackDown stakes: the loser drops three spots, the winner climbs two but
// never into first place. First place must be earned via a standard
// challenge or a smackback.
const (
	SmackDownDrop  = 3
	SmackDownClimb = 2
)

// MoveSummary captures position snapshots around a single mutation, for the
// appended Match record.
type MoveSummary struct {
	ChallengerPosBefore int
	ChallengerPosAfter  int
	DefenderPosBefore   int
	DefenderPosAfter    int
}

// Apply computes a bracket's new ordering from a completed challenge. The
// input is the bracket's players sorted by position; the returned slice is
// re-normalized to a contiguous 1..N permutation. Win/loss counters,
// immunity and the earned smackback flag are updated in the same pass.
//
// Apply must run inside the bracket's critical section (Store.Update).
func Apply(players []domain.Player, ch *domain.Challenge, now time.Time) ([]domain.Player, MoveSummary, error) {
	if ch.Result == nil {
		return nil, MoveSummary{}, fmt.Errorf("challenge %s has no result", ch.ID)
	}
	if ch.Type == domain.TypeLadderJump {
		return nil, MoveSummary{}, fmt.Errorf("ladder-jump requires a cross-bracket apply")
	}

	ci := indexOf(players, ch.ChallengerID)
	di := indexOf(players, ch.DefenderID)
	if ci < 0 || di < 0 {
		return nil, MoveSummary{}, domain.ErrPlayerNotFound
	}

	summary := MoveSummary{
		ChallengerPosBefore: players[ci].Position,
		DefenderPosBefore:   players[di].Position,
	}
	challengerWon := ch.Result.WinnerID == ch.ChallengerID

	switch ch.Type {
	case domain.TypeChallenge:
		if challengerWon {
			players[ci], players[di] = players[di], players[ci]
		}

	case domain.TypeSmackDown:
		if challengerWon {
			players = moveToPosition(players, ch.DefenderID, summary.DefenderPosBefore+SmackDownDrop)
			target := summary.ChallengerPosBefore - SmackDownClimb
			// Not into first place: a winner starting below 1 stops at 2.
			if target < 2 && summary.ChallengerPosBefore > 1 {
				target = 2
			}
			players = moveToPosition(players, ch.ChallengerID, target)
		} else {
			players[ci], players[di] = players[di], players[ci]
		}

	case domain.TypeSmackBack:
		if challengerWon {
			players = moveToPosition(players, ch.ChallengerID, 1)
		}

	default:
		return nil, MoveSummary{}, fmt.Errorf("unsupported challenge type %q", ch.Type)
	}

	renumber(players, now)
	applyOutcomeStats(players, ch, now)

	ci = indexOf(players, ch.ChallengerID)
	di = indexOf(players, ch.DefenderID)
	summary.ChallengerPosAfter = players[ci].Position
	summary.DefenderPosAfter = players[di].Position
	return players, summary, nil
}

// ApplyLadderJump computes both brackets' new orderings for a completed
// cross-bracket promotion challenge. A winning challenger takes the
// defender's slot in the higher bracket and the defender drops into the
// challenger's slot in the lower one; a defender win changes nothing.
func ApplyLadderJump(lower, higher []domain.Player, ch *domain.Challenge, now time.Time) ([]domain.Player, []domain.Player, MoveSummary, error) {
	if ch.Result == nil {
		return nil, nil, MoveSummary{}, fmt.Errorf("challenge %s has no result", ch.ID)
	}
	ci := indexOf(lower, ch.ChallengerID)
	di := indexOf(higher, ch.DefenderID)
	if ci < 0 || di < 0 {
		return nil, nil, MoveSummary{}, domain.ErrPlayerNotFound
	}

	summary := MoveSummary{
		ChallengerPosBefore: lower[ci].Position,
		DefenderPosBefore:   higher[di].Position,
	}

	if ch.Result.WinnerID == ch.ChallengerID {
		challenger, defender := lower[ci], higher[di]
		challenger.Bracket, defender.Bracket = defender.Bracket, challenger.Bracket
		challenger.Position, defender.Position = defender.Position, challenger.Position
		lower[ci], higher[di] = defender, challenger
	}

	renumber(lower, now)
	renumber(higher, now)
	applyOutcomeStats(lower, ch, now)
	applyOutcomeStats(higher, ch, now)

	summary.ChallengerPosAfter = positionOf(lower, higher, ch.ChallengerID)
	summary.DefenderPosAfter = positionOf(lower, higher, ch.DefenderID)
	return lower, higher, summary, nil
}

// moveToPosition takes the player out of the ordering and reinserts them at
// the target 1-based position, clamped to the bracket; everyone in between
// shifts one spot to keep the ladder contiguous.
func moveToPosition(players []domain.Player, playerID string, target int) []domain.Player {
	idx := indexOf(players, playerID)
	if idx < 0 {
		return players
	}
	if target < 1 {
		target = 1
	}
	if target > len(players) {
		target = len(players)
	}

	moved := players[idx]
	players = append(players[:idx], players[idx+1:]...)
	ti := target - 1
	players = append(players, domain.Player{})
	copy(players[ti+1:], players[ti:])
	players[ti] = moved
	return players
}

// renumber assigns contiguous positions following slice order.
func renumber(players []domain.Player, now time.Time) {
	for i := range players {
		if players[i].Position != i+1 {
			players[i].Position = i + 1
			players[i].UpdatedAt = now
		}
	}
}

// applyOutcomeStats updates counters, winner immunity and the earned
// smackback right for any participant present in the slice.
func applyOutcomeStats(players []domain.Player, ch *domain.Challenge, now time.Time) {
	for i := range players {
		p := &players[i]
		if p.ID != ch.ChallengerID && p.ID != ch.DefenderID {
			continue
		}
		p.UpdatedAt = now
		if p.ID == ch.Result.WinnerID {
			p.Wins++
			until := now.Add(domain.ImmunityPeriod)
			p.ImmunityUntil = &until
			if ch.Type == domain.TypeSmackDown && p.ID == ch.DefenderID {
				p.SmackBackEligible = true
			}
		} else {
			p.Losses++
		}
	}
}

func indexOf(players []domain.Player, playerID string) int {
	for i := range players {
		if players[i].ID == playerID {
			return i
		}
	}
	return -1
}

func positionOf(lower, higher []domain.Player, playerID string) int {
	if i := indexOf(lower, playerID); i >= 0 {
		return lower[i].Position
	}
	if i := indexOf(higher, playerID); i >= 0 {
		return higher[i].Position
	}
	return 0
}
