package ladder

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/pool-ladder/internal/domain"
)

// Store holds the canonical ordered player list for every bracket. It is the
// single source of truth for positions: all writes go through Update under
// the bracket's lock, reads get immutable snapshots tagged with a version.
type Store struct {
	mu       sync.RWMutex
	brackets map[domain.Bracket]*bracketState
	logger   *slog.Logger
}

type bracketState struct {
	mu      sync.Mutex
	players []domain.Player // sorted by position, ascending
	version uint64
	// frozen is set when a mutation produced a broken permutation; the
	// bracket then rejects writes until manually reconciled.
	frozen bool
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		brackets: make(map[domain.Bracket]*bracketState),
		logger:   logger,
	}
}

// Load replaces a bracket's contents, validating the position permutation.
// Used at startup and for manual reconciliation; loading unfreezes.
func (s *Store) Load(bracket domain.Bracket, players []domain.Player) error {
	sorted := clonePlayers(players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	if err := ValidatePermutation(bracket, sorted); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.brackets[bracket]
	if !ok {
		state = &bracketState{}
		s.brackets[bracket] = state
	}
	state.mu.Lock()
	state.players = sorted
	state.version++
	state.frozen = false
	state.mu.Unlock()

	s.logger.Info("bracket loaded", "bracket", bracket, "players", len(sorted))
	return nil
}

func (s *Store) bracket(name domain.Bracket) (*bracketState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.brackets[name]
	if !ok {
		return nil, domain.ErrBracketNotFound
	}
	return state, nil
}

// Snapshot returns a copy of the bracket's players in position order along
// with the bracket version the copy was taken at.
func (s *Store) Snapshot(bracket domain.Bracket) ([]domain.Player, uint64, error) {
	state, err := s.bracket(bracket)
	if err != nil {
		return nil, 0, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return clonePlayers(state.players), state.version, nil
}

// Version returns the bracket's current version.
func (s *Store) Version(bracket domain.Bracket) (uint64, error) {
	state, err := s.bracket(bracket)
	if err != nil {
		return 0, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.version, nil
}

// Player finds a player by id in the given bracket.
func (s *Store) Player(bracket domain.Bracket, playerID string) (domain.Player, error) {
	players, _, err := s.Snapshot(bracket)
	if err != nil {
		return domain.Player{}, err
	}
	for _, p := range players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return domain.Player{}, domain.ErrPlayerNotFound
}

// FindPlayer searches every bracket for a player by id.
func (s *Store) FindPlayer(playerID string) (domain.Player, error) {
	s.mu.RLock()
	names := make([]domain.Bracket, 0, len(s.brackets))
	for name := range s.brackets {
		names = append(names, name)
	}
	s.mu.RUnlock()

	for _, name := range names {
		if p, err := s.Player(name, playerID); err == nil {
			return p, nil
		}
	}
	return domain.Player{}, domain.ErrPlayerNotFound
}

// BracketNames returns the loaded brackets in division order.
func (s *Store) BracketNames() []domain.Bracket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []domain.Bracket
	for _, b := range domain.Brackets {
		if _, ok := s.brackets[b]; ok {
			names = append(names, b)
		}
	}
	return names
}

// Update runs fn as a critical section against the bracket. fn receives a
// working copy and returns the replacement ordering; the commit is rejected
// and the bracket frozen if the result is not a clean 1..N permutation. The
// pre-mutation state stays committed in that case.
func (s *Store) Update(bracket domain.Bracket, fn func(players []domain.Player) ([]domain.Player, error)) ([]domain.Player, uint64, error) {
	state, err := s.bracket(bracket)
	if err != nil {
		return nil, 0, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.frozen {
		return nil, 0, domain.ErrBracketFrozen
	}

	updated, err := fn(clonePlayers(state.players))
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(updated, func(i, j int) bool { return updated[i].Position < updated[j].Position })
	if err := ValidatePermutation(bracket, updated); err != nil {
		state.frozen = true
		s.logger.Error("bracket frozen after invariant violation", "bracket", bracket, "error", err)
		return nil, 0, err
	}

	state.players = updated
	state.version++
	return clonePlayers(updated), state.version, nil
}

// UpdatePair runs fn against two brackets at once, for cross-bracket moves.
// Locks are taken in division order so concurrent pair updates cannot
// deadlock. Both commits succeed or neither does.
func (s *Store) UpdatePair(lower, higher domain.Bracket, fn func(low, high []domain.Player) ([]domain.Player, []domain.Player, error)) error {
	if lower == higher {
		return fmt.Errorf("cross-bracket update requires distinct brackets")
	}
	lowState, err := s.bracket(lower)
	if err != nil {
		return err
	}
	highState, err := s.bracket(higher)
	if err != nil {
		return err
	}

	first, second := lowState, highState
	if bracketIndex(higher) < bracketIndex(lower) {
		first, second = highState, lowState
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if lowState.frozen || highState.frozen {
		return domain.ErrBracketFrozen
	}

	newLow, newHigh, err := fn(clonePlayers(lowState.players), clonePlayers(highState.players))
	if err != nil {
		return err
	}

	sort.Slice(newLow, func(i, j int) bool { return newLow[i].Position < newLow[j].Position })
	sort.Slice(newHigh, func(i, j int) bool { return newHigh[i].Position < newHigh[j].Position })
	if err := ValidatePermutation(lower, newLow); err != nil {
		lowState.frozen = true
		s.logger.Error("bracket frozen after invariant violation", "bracket", lower, "error", err)
		return err
	}
	if err := ValidatePermutation(higher, newHigh); err != nil {
		highState.frozen = true
		s.logger.Error("bracket frozen after invariant violation", "bracket", higher, "error", err)
		return err
	}

	lowState.players = newLow
	lowState.version++
	highState.players = newHigh
	highState.version++
	return nil
}

// Frozen reports whether the bracket rejects mutations.
func (s *Store) Frozen(bracket domain.Bracket) bool {
	state, err := s.bracket(bracket)
	if err != nil {
		return false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.frozen
}

// ValidatePermutation checks that positions form exactly 1..N with every
// player assigned to the given bracket.
func ValidatePermutation(bracket domain.Bracket, players []domain.Player) error {
	seen := make(map[int]string, len(players))
	for _, p := range players {
		if p.Bracket != bracket {
			return &domain.LadderInvariantError{
				Bracket: bracket,
				Detail:  fmt.Sprintf("player %s belongs to bracket %s", p.ID, p.Bracket),
			}
		}
		if p.Position < 1 || p.Position > len(players) {
			return &domain.LadderInvariantError{
				Bracket: bracket,
				Detail:  fmt.Sprintf("player %s has position %d outside 1..%d", p.ID, p.Position, len(players)),
			}
		}
		if other, dup := seen[p.Position]; dup {
			return &domain.LadderInvariantError{
				Bracket: bracket,
				Detail:  fmt.Sprintf("players %s and %s share position %d", other, p.ID, p.Position),
			}
		}
		seen[p.Position] = p.ID
	}
	return nil
}

func clonePlayers(players []domain.Player) []domain.Player {
	out := make([]domain.Player, len(players))
	copy(out, players)
	return out
}

func bracketIndex(b domain.Bracket) int {
	for i, known := range domain.Brackets {
		if known == b {
			return i
		}
	}
	return len(domain.Brackets)
}
