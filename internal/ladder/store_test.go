package ladder

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pool-ladder/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bracketOf(bracket domain.Bracket, ids ...string) []domain.Player {
	players := make([]domain.Player, len(ids))
	for i, id := range ids {
		players[i] = domain.Player{
			ID:             id,
			FirstName:      id,
			Bracket:        bracket,
			Position:       i + 1,
			Active:         true,
			UnifiedAccount: true,
		}
	}
	return players
}

func TestStoreLoadAndSnapshot(t *testing.T) {
	s := NewStore(testLogger())
	if err := s.Load(domain.Bracket499Under, bracketOf(domain.Bracket499Under, "a", "b", "c")); err != nil {
		t.Fatalf("Load: %v", err)
	}

	players, version, err := s.Snapshot(domain.Bracket499Under)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if version == 0 {
		t.Error("expected nonzero version after load")
	}
	for i, p := range players {
		if p.Position != i+1 {
			t.Errorf("player %s at index %d has position %d", p.ID, i, p.Position)
		}
	}

	// Mutating the snapshot must not affect the store.
	players[0].Position = 99
	again, _, _ := s.Snapshot(domain.Bracket499Under)
	if again[0].Position != 1 {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestStoreLoadRejectsBrokenPermutation(t *testing.T) {
	s := NewStore(testLogger())
	players := bracketOf(domain.Bracket499Under, "a", "b", "c")
	players[2].Position = 2 // duplicate

	if err := s.Load(domain.Bracket499Under, players); err == nil {
		t.Fatal("expected load of duplicate positions to fail")
	}
	var invariant *domain.LadderInvariantError
	err := s.Load(domain.Bracket499Under, players)
	if !errors.As(err, &invariant) {
		t.Fatalf("expected LadderInvariantError, got %v", err)
	}
}

func TestStoreUpdateCommitsValidMutation(t *testing.T) {
	s := NewStore(testLogger())
	if err := s.Load(domain.Bracket499Under, bracketOf(domain.Bracket499Under, "a", "b", "c")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, v1, _ := s.Snapshot(domain.Bracket499Under)

	updated, v2, err := s.Update(domain.Bracket499Under, func(players []domain.Player) ([]domain.Player, error) {
		players[0].Position, players[1].Position = 2, 1
		return players, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v2 != v1+1 {
		t.Errorf("version = %d, want %d", v2, v1+1)
	}
	if updated[0].ID != "b" || updated[1].ID != "a" {
		t.Errorf("expected swapped order, got %s,%s", updated[0].ID, updated[1].ID)
	}
}

func TestStoreUpdateFreezesOnInvariantViolation(t *testing.T) {
	s := NewStore(testLogger())
	if err := s.Load(domain.Bracket499Under, bracketOf(domain.Bracket499Under, "a", "b", "c")); err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, _, err := s.Update(domain.Bracket499Under, func(players []domain.Player) ([]domain.Player, error) {
		players[0].Position = 7
		return players, nil
	})
	var invariant *domain.LadderInvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("expected LadderInvariantError, got %v", err)
	}
	if !s.Frozen(domain.Bracket499Under) {
		t.Error("bracket should be frozen after a broken commit")
	}

	// Pre-mutation state stays committed.
	players, _, _ := s.Snapshot(domain.Bracket499Under)
	if players[0].Position != 1 {
		t.Errorf("position = %d, want pre-mutation 1", players[0].Position)
	}

	// Further writes are rejected until a reload.
	_, _, err = s.Update(domain.Bracket499Under, func(players []domain.Player) ([]domain.Player, error) {
		return players, nil
	})
	if !errors.Is(err, domain.ErrBracketFrozen) {
		t.Fatalf("expected ErrBracketFrozen, got %v", err)
	}

	if err := s.Load(domain.Bracket499Under, bracketOf(domain.Bracket499Under, "a", "b", "c")); err != nil {
		t.Fatalf("reload after freeze: %v", err)
	}
	if s.Frozen(domain.Bracket499Under) {
		t.Error("reload should unfreeze the bracket")
	}
}

func TestStoreUpdateErrorLeavesStateUntouched(t *testing.T) {
	s := NewStore(testLogger())
	if err := s.Load(domain.Bracket499Under, bracketOf(domain.Bracket499Under, "a", "b")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, v1, _ := s.Snapshot(domain.Bracket499Under)

	wantErr := errors.New("boom")
	_, _, err := s.Update(domain.Bracket499Under, func(players []domain.Player) ([]domain.Player, error) {
		players[0].Position = 99
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	players, v2, _ := s.Snapshot(domain.Bracket499Under)
	if v2 != v1 {
		t.Errorf("version changed on failed update: %d -> %d", v1, v2)
	}
	if players[0].Position != 1 {
		t.Error("failed update leaked into the store")
	}
	if s.Frozen(domain.Bracket499Under) {
		t.Error("fn error must not freeze the bracket")
	}
}

func TestStoreUpdatePair(t *testing.T) {
	s := NewStore(testLogger())
	if err := s.Load(domain.Bracket499Under, bracketOf(domain.Bracket499Under, "a", "b", "c")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Load(domain.Bracket500To549, bracketOf(domain.Bracket500To549, "x", "y", "z")); err != nil {
		t.Fatalf("Load: %v", err)
	}

	err := s.UpdatePair(domain.Bracket499Under, domain.Bracket500To549, func(low, high []domain.Player) ([]domain.Player, []domain.Player, error) {
		// Swap the top of low with the bottom of high, keeping slots.
		low[0].ID, high[2].ID = high[2].ID, low[0].ID
		low[0].FirstName, high[2].FirstName = high[2].FirstName, low[0].FirstName
		return low, high, nil
	})
	if err != nil {
		t.Fatalf("UpdatePair: %v", err)
	}

	low, _, _ := s.Snapshot(domain.Bracket499Under)
	high, _, _ := s.Snapshot(domain.Bracket500To549)
	if low[0].ID != "z" {
		t.Errorf("low top = %s, want z", low[0].ID)
	}
	if high[2].ID != "a" {
		t.Errorf("high bottom = %s, want a", high[2].ID)
	}
}

func TestStoreUnknownBracket(t *testing.T) {
	s := NewStore(testLogger())
	if _, _, err := s.Snapshot(domain.Bracket550Plus); !errors.Is(err, domain.ErrBracketNotFound) {
		t.Fatalf("expected ErrBracketNotFound, got %v", err)
	}
}

func TestValidatePermutation(t *testing.T) {
	tests := []struct {
		name      string
		positions []int
		wantErr   bool
	}{
		{"contiguous", []int{1, 2, 3}, false},
		{"single", []int{1}, false},
		{"gap", []int{1, 3, 4}, true},
		{"duplicate", []int{1, 2, 2}, true},
		{"zero", []int{0, 1, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players := make([]domain.Player, len(tt.positions))
			for i, pos := range tt.positions {
				players[i] = domain.Player{ID: string(rune('a' + i)), Bracket: domain.Bracket499Under, Position: pos}
			}
			err := ValidatePermutation(domain.Bracket499Under, players)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePermutation(%v) error = %v, wantErr %v", tt.positions, err, tt.wantErr)
			}
		})
	}
}
