package ladder

import (
	"testing"
	"time"

	"github.com/pool-ladder/internal/domain"
)

func ladderOf(bracket domain.Bracket, n int) []domain.Player {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	return bracketOf(bracket, ids...)
}

func completed(bracket domain.Bracket, challengeType domain.ChallengeType, challengerID, defenderID, winnerID string) *domain.Challenge {
	return &domain.Challenge{
		ID:           "ch-1",
		Bracket:      bracket,
		ChallengerID: challengerID,
		DefenderID:   defenderID,
		Type:         challengeType,
		Status:       domain.StatusCompleted,
		Result:       &domain.Result{WinnerID: winnerID, Score: "7-4"},
	}
}

func positions(t *testing.T, players []domain.Player) map[string]int {
	t.Helper()
	out := make(map[string]int, len(players))
	for _, p := range players {
		out[p.ID] = p.Position
	}
	if err := ValidatePermutation(players[0].Bracket, players); err != nil {
		t.Fatalf("post-mutation permutation broken: %v", err)
	}
	return out
}

func TestApplyChallengeWinSwaps(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 6)

	// d at position 4 calls out b at position 2 and wins.
	ch := completed(domain.Bracket499Under, domain.TypeChallenge, "d", "b", "d")
	updated, summary, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	want := map[string]int{"a": 1, "d": 2, "c": 3, "b": 4, "e": 5, "f": 6}
	for id, p := range want {
		if pos[id] != p {
			t.Errorf("%s at %d, want %d", id, pos[id], p)
		}
	}
	if summary.ChallengerPosBefore != 4 || summary.ChallengerPosAfter != 2 {
		t.Errorf("challenger summary %d->%d, want 4->2", summary.ChallengerPosBefore, summary.ChallengerPosAfter)
	}
	if summary.DefenderPosBefore != 2 || summary.DefenderPosAfter != 4 {
		t.Errorf("defender summary %d->%d, want 2->4", summary.DefenderPosBefore, summary.DefenderPosAfter)
	}
}

func TestApplyChallengeLossLeavesOrder(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 6)

	ch := completed(domain.Bracket499Under, domain.TypeChallenge, "d", "b", "b")
	updated, _, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		if pos[id] != i+1 {
			t.Errorf("%s moved to %d on a defended challenge", id, pos[id])
		}
	}
}

func TestApplyChallengeUpdatesRecords(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 6)

	ch := completed(domain.Bracket499Under, domain.TypeChallenge, "d", "b", "d")
	updated, _, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for _, p := range updated {
		switch p.ID {
		case "d":
			if p.Wins != 1 || p.Losses != 0 {
				t.Errorf("winner record %d-%d, want 1-0", p.Wins, p.Losses)
			}
			if p.ImmunityUntil == nil || !p.ImmunityUntil.Equal(now.Add(domain.ImmunityPeriod)) {
				t.Errorf("winner immunity = %v, want %v", p.ImmunityUntil, now.Add(domain.ImmunityPeriod))
			}
		case "b":
			if p.Wins != 0 || p.Losses != 1 {
				t.Errorf("loser record %d-%d, want 0-1", p.Wins, p.Losses)
			}
			if p.ImmunityUntil != nil {
				t.Error("loser must not gain immunity")
			}
		default:
			if p.Wins != 0 || p.Losses != 0 {
				t.Errorf("bystander %s record changed", p.ID)
			}
		}
	}
}

func TestApplySmackDownWin(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 8)

	// b at 2 smacks down d at 4 and wins: d drops three to 7, b holds 2
	// because the climb stops short of first place.
	ch := completed(domain.Bracket499Under, domain.TypeSmackDown, "b", "d", "b")
	updated, summary, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	if pos["b"] != 2 {
		t.Errorf("challenger at %d, want to stay at 2", pos["b"])
	}
	if pos["d"] != 7 {
		t.Errorf("defender at %d, want 7", pos["d"])
	}
	// Everyone between the defender's old and new slot moves up one.
	for _, id := range []string{"e", "f", "g"} {
		want := map[string]int{"e": 4, "f": 5, "g": 6}[id]
		if pos[id] != want {
			t.Errorf("%s at %d, want %d", id, pos[id], want)
		}
	}
	if summary.DefenderPosBefore != 4 || summary.DefenderPosAfter != 7 {
		t.Errorf("defender summary %d->%d, want 4->7", summary.DefenderPosBefore, summary.DefenderPosAfter)
	}
}

func TestApplySmackDownWinClimbsTwo(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 10)

	// e at 5 smacks down h at 8 and wins: e climbs two to 3, h drops to 10.
	ch := completed(domain.Bracket499Under, domain.TypeSmackDown, "e", "h", "e")
	updated, _, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	if pos["e"] != 3 {
		t.Errorf("challenger at %d, want 3", pos["e"])
	}
	if pos["h"] != 10 {
		t.Errorf("defender at %d, want 10 (clamped drop)", pos["h"])
	}
}

func TestApplySmackDownLossSwaps(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 8)

	// b at 2 smacks down d at 4 and loses: they trade places and d earns
	// the smackback right.
	ch := completed(domain.Bracket499Under, domain.TypeSmackDown, "b", "d", "d")
	updated, _, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	if pos["b"] != 4 || pos["d"] != 2 {
		t.Errorf("b at %d, d at %d, want 4 and 2", pos["b"], pos["d"])
	}
	for _, p := range updated {
		if p.ID == "d" && !p.SmackBackEligible {
			t.Error("winning smackdown defender should earn smackback")
		}
		if p.ID == "b" && p.SmackBackEligible {
			t.Error("losing smackdown challenger must not earn smackback")
		}
	}
}

func TestApplySmackBackWinTakesFirst(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 6)

	ch := completed(domain.Bracket499Under, domain.TypeSmackBack, "e", "a", "e")
	updated, summary, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	if pos["e"] != 1 {
		t.Errorf("challenger at %d, want 1", pos["e"])
	}
	// Everyone above the old slot shifts down one.
	want := map[string]int{"a": 2, "b": 3, "c": 4, "d": 5, "f": 6}
	for id, p := range want {
		if pos[id] != p {
			t.Errorf("%s at %d, want %d", id, pos[id], p)
		}
	}
	if summary.ChallengerPosAfter != 1 {
		t.Errorf("summary after = %d, want 1", summary.ChallengerPosAfter)
	}
}

func TestApplySmackBackLossLeavesOrder(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	players := ladderOf(domain.Bracket499Under, 6)

	ch := completed(domain.Bracket499Under, domain.TypeSmackBack, "e", "a", "a")
	updated, _, err := Apply(players, ch, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pos := positions(t, updated)
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		if pos[id] != i+1 {
			t.Errorf("%s moved to %d on a defended smackback", id, pos[id])
		}
	}
}

func TestApplyRejectsMissingResult(t *testing.T) {
	players := ladderOf(domain.Bracket499Under, 4)
	ch := completed(domain.Bracket499Under, domain.TypeChallenge, "c", "a", "c")
	ch.Result = nil

	if _, _, err := Apply(players, ch, time.Now()); err == nil {
		t.Fatal("expected error for missing result")
	}
}

func TestApplyRejectsLadderJump(t *testing.T) {
	players := ladderOf(domain.Bracket499Under, 4)
	ch := completed(domain.Bracket499Under, domain.TypeLadderJump, "c", "a", "c")

	if _, _, err := Apply(players, ch, time.Now()); err == nil {
		t.Fatal("expected single-bracket apply to reject ladder-jump")
	}
}

func TestApplyLadderJumpWinSwapsBrackets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lower := ladderOf(domain.Bracket499Under, 5)
	higher := bracketOf(domain.Bracket500To549, "v", "w", "x", "y", "z")

	ch := &domain.Challenge{
		ID:           "ch-jump",
		Bracket:      domain.Bracket500To549,
		ChallengerID: "a", // top of the lower bracket
		DefenderID:   "z", // bottom of the higher one
		Type:         domain.TypeLadderJump,
		Status:       domain.StatusCompleted,
		Result:       &domain.Result{WinnerID: "a", Score: "7-2"},
	}

	newLower, newHigher, summary, err := ApplyLadderJump(lower, higher, ch, now)
	if err != nil {
		t.Fatalf("ApplyLadderJump: %v", err)
	}

	lowPos := positions(t, newLower)
	highPos := positions(t, newHigher)

	if _, ok := lowPos["a"]; ok {
		t.Fatal("promoted challenger still in the lower bracket")
	}
	if highPos["a"] != 5 {
		t.Errorf("challenger at %d in higher bracket, want 5", highPos["a"])
	}
	if lowPos["z"] != 1 {
		t.Errorf("demoted defender at %d in lower bracket, want 1", lowPos["z"])
	}
	if summary.ChallengerPosAfter != 5 || summary.DefenderPosAfter != 1 {
		t.Errorf("summary after %d/%d, want 5/1", summary.ChallengerPosAfter, summary.DefenderPosAfter)
	}

	for _, p := range newHigher {
		if p.Bracket != domain.Bracket500To549 {
			t.Errorf("player %s carries bracket %s in the higher ladder", p.ID, p.Bracket)
		}
	}
	for _, p := range newLower {
		if p.Bracket != domain.Bracket499Under {
			t.Errorf("player %s carries bracket %s in the lower ladder", p.ID, p.Bracket)
		}
	}
}

func TestApplyLadderJumpLossLeavesBrackets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lower := ladderOf(domain.Bracket499Under, 5)
	higher := bracketOf(domain.Bracket500To549, "v", "w", "x", "y", "z")

	ch := &domain.Challenge{
		ID:           "ch-jump",
		Bracket:      domain.Bracket500To549,
		ChallengerID: "a",
		DefenderID:   "z",
		Type:         domain.TypeLadderJump,
		Status:       domain.StatusCompleted,
		Result:       &domain.Result{WinnerID: "z", Score: "7-6"},
	}

	newLower, newHigher, _, err := ApplyLadderJump(lower, higher, ch, now)
	if err != nil {
		t.Fatalf("ApplyLadderJump: %v", err)
	}

	if positions(t, newLower)["a"] != 1 {
		t.Error("failed jumper should keep their slot")
	}
	if positions(t, newHigher)["z"] != 5 {
		t.Error("successful defender should keep their slot")
	}
}
