package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pool-ladder/internal/challenge"
	"github.com/pool-ladder/internal/domain"
	"github.com/pool-ladder/internal/ladder"
	"github.com/pool-ladder/internal/suggest"
)

// Repository is the persistence surface the service needs. Implemented by
// postgres.Repository.
type Repository interface {
	ListPlayersByBracket(ctx context.Context, bracket domain.Bracket) ([]domain.Player, error)
	CreatePlayer(ctx context.Context, p *domain.Player) error
	UpdatePlayer(ctx context.Context, p *domain.Player) error
	BatchUpdateStandings(ctx context.Context, players []domain.Player) error

	CreateChallenge(ctx context.Context, c *domain.Challenge) error
	GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error)
	UpdateChallenge(ctx context.Context, c *domain.Challenge) error
	ListChallengesByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Challenge, error)
	ListOpenChallenges(ctx context.Context) ([]domain.Challenge, error)
	ListOverdueChallenges(ctx context.Context, now time.Time) ([]domain.Challenge, error)

	RecordMatch(ctx context.Context, m *domain.Match) error
	ListMatchesByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Match, error)
	LastMatchByPlayer(ctx context.Context) (map[string]time.Time, error)

	RecordSuggestionFeedback(ctx context.Context, fb domain.SuggestionFeedback) error
	ListSuggestionFeedback(ctx context.Context, limit int) ([]domain.SuggestionFeedback, error)
}

// Mirror is the published-standings cache. Implemented by
// redis.StandingsMirror.
type Mirror interface {
	ReplaceBracket(ctx context.Context, bracket domain.Bracket, players []domain.Player) error
	GetStandings(ctx context.Context, bracket domain.Bracket) ([]domain.StandingEntry, error)
	GetPlayerStanding(ctx context.Context, bracket domain.Bracket, playerID string) (*domain.StandingEntry, error)
	RemovePlayer(ctx context.Context, bracket domain.Bracket, playerID string) error
	GetCount(ctx context.Context, bracket domain.Bracket) (int64, error)
}

// Notifier pushes state changes to subscribers. Implemented by
// websocket.Hub.
type Notifier interface {
	BroadcastStandings(bracket domain.Bracket, entries []domain.StandingEntry)
	BroadcastChallengeEvent(event string, challenge *domain.Challenge)
}

// LadderService ties the rules engine together: eligibility gates challenge
// creation, the lifecycle gates transitions and completed results drive
// ladder mutations under the bracket lock.
type LadderService struct {
	store    *ladder.Store
	repo     Repository
	mirror   Mirror
	notifier Notifier
	history  *suggest.History
	scorer   *suggest.Scorer
	logger   *slog.Logger
	now      func() time.Time

	// Per-challenge locks serialize responses and result reports so a
	// duplicate report observes the completed status instead of racing it.
	challengeLocks sync.Map
}

// NewLadderService creates the service. mirror and notifier may be nil.
func NewLadderService(
	store *ladder.Store,
	repo Repository,
	mirror Mirror,
	notifier Notifier,
	history *suggest.History,
	logger *slog.Logger,
) *LadderService {
	s := &LadderService{
		store:    store,
		repo:     repo,
		mirror:   mirror,
		notifier: notifier,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
	s.scorer = suggest.NewScorer(history, func() time.Time { return s.now() }, logger)
	return s
}

// SetClock overrides the service clock
func (s *LadderService) SetClock(now func() time.Time) {
	s.now = now
}

// LoadFromDatabase hydrates the in-memory ladders, the suggestion history
// and the standings mirror from PostgreSQL. Called once at startup.
func (s *LadderService) LoadFromDatabase(ctx context.Context) error {
	for _, bracket := range domain.Brackets {
		players, err := s.repo.ListPlayersByBracket(ctx, bracket)
		if err != nil {
			return fmt.Errorf("loading bracket %s: %w", bracket, err)
		}
		if len(players) == 0 {
			continue
		}
		if err := s.store.Load(bracket, players); err != nil {
			return fmt.Errorf("loading bracket %s: %w", bracket, err)
		}
	}

	feedback, err := s.repo.ListSuggestionFeedback(ctx, s.history.Cap())
	if err != nil {
		return fmt.Errorf("loading suggestion feedback: %w", err)
	}
	for _, fb := range feedback {
		s.history.Record(fb)
	}

	return s.RefreshMirror(ctx)
}

// RefreshMirror republishes every loaded bracket to the standings mirror
func (s *LadderService) RefreshMirror(ctx context.Context) error {
	if s.mirror == nil {
		return nil
	}
	for _, bracket := range s.store.BracketNames() {
		players, _, err := s.store.Snapshot(bracket)
		if err != nil {
			return err
		}
		if err := s.mirror.ReplaceBracket(ctx, bracket, players); err != nil {
			return fmt.Errorf("mirroring bracket %s: %w", bracket, err)
		}
	}
	return nil
}

// GetStandings returns a bracket's current standings
func (s *LadderService) GetStandings(ctx context.Context, bracket domain.Bracket) ([]domain.StandingEntry, error) {
	if s.mirror != nil {
		entries, err := s.mirror.GetStandings(ctx, bracket)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.logger.Warn("standings mirror read failed, falling back", "bracket", bracket, "error", err)
		}
	}

	players, _, err := s.store.Snapshot(bracket)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.StandingEntry, len(players))
	for i, p := range players {
		entries[i] = domain.StandingEntry{
			Position: p.Position,
			PlayerID: p.ID,
			Name:     p.Name(),
			Wins:     p.Wins,
			Losses:   p.Losses,
		}
	}
	return entries, nil
}

// GetPlayer returns a player from any bracket
func (s *LadderService) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	return s.store.FindPlayer(playerID)
}

// BracketSummary is one ladder bracket with its population.
type BracketSummary struct {
	Bracket domain.Bracket `json:"ladder_name"`
	Size    int            `json:"size"`
}

// ListBrackets returns every known bracket with its player count
func (s *LadderService) ListBrackets(ctx context.Context) []BracketSummary {
	summaries := make([]BracketSummary, 0, len(domain.Brackets))
	for _, bracket := range domain.Brackets {
		summary := BracketSummary{Bracket: bracket}
		if s.mirror != nil {
			if count, err := s.mirror.GetCount(ctx, bracket); err == nil && count > 0 {
				summary.Size = int(count)
				summaries = append(summaries, summary)
				continue
			}
		}
		summary.Size = s.bracketSize(bracket)
		summaries = append(summaries, summary)
	}
	return summaries
}

// GetPlayerStanding returns one player's published standing within a bracket
func (s *LadderService) GetPlayerStanding(ctx context.Context, bracket domain.Bracket, playerID string) (*domain.StandingEntry, error) {
	if s.mirror != nil {
		entry, err := s.mirror.GetPlayerStanding(ctx, bracket, playerID)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, domain.ErrPlayerNotFound) {
			s.logger.Warn("standings mirror read failed, falling back", "bracket", bracket, "error", err)
		}
	}

	p, err := s.store.Player(bracket, playerID)
	if err != nil {
		return nil, err
	}
	return &domain.StandingEntry{
		Position: p.Position,
		PlayerID: p.ID,
		Name:     p.Name(),
		Wins:     p.Wins,
		Losses:   p.Losses,
	}, nil
}

// RemovePlayer takes a player off their ladder; everyone below shifts up one.
// The player row is kept, deactivated, for match history.
func (s *LadderService) RemovePlayer(ctx context.Context, playerID string) error {
	p, err := s.store.FindPlayer(playerID)
	if err != nil {
		return err
	}

	now := s.now()
	var removed domain.Player
	updated, _, err := s.store.Update(p.Bracket, func(players []domain.Player) ([]domain.Player, error) {
		idx := -1
		for i := range players {
			if players[i].ID == playerID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, domain.ErrPlayerNotFound
		}
		removed = players[idx]
		players = append(players[:idx], players[idx+1:]...)
		for i := range players {
			if players[i].Position != i+1 {
				players[i].Position = i + 1
				players[i].UpdatedAt = now
			}
		}
		return players, nil
	})
	if err != nil {
		return err
	}

	removed.Active = false
	removed.Position = 0
	removed.UpdatedAt = now
	if err := s.repo.UpdatePlayer(ctx, &removed); err != nil {
		return err
	}
	if err := s.repo.BatchUpdateStandings(ctx, updated); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.RemovePlayer(ctx, p.Bracket, playerID); err != nil {
			s.logger.Warn("failed to drop player from standings mirror", "player_id", playerID, "error", err)
		}
	}

	s.logger.Info("player removed from ladder", "player_id", playerID, "bracket", p.Bracket)
	s.publishStandings(ctx, p.Bracket, updated)
	return nil
}

// RegisterPlayer adds a player to the bottom of their bracket
func (s *LadderService) RegisterPlayer(ctx context.Context, p domain.Player) (*domain.Player, error) {
	if !p.Bracket.Valid() {
		return nil, fmt.Errorf("%w: unknown bracket %q", domain.ErrInvalidRequest, p.Bracket)
	}
	if p.FirstName == "" {
		return nil, fmt.Errorf("%w: first name required", domain.ErrInvalidRequest)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := s.now()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now

	var registered domain.Player
	updated, _, err := s.store.Update(p.Bracket, func(players []domain.Player) ([]domain.Player, error) {
		for _, existing := range players {
			if existing.ID == p.ID {
				return nil, fmt.Errorf("%w: player %s already on ladder", domain.ErrInvalidRequest, p.ID)
			}
		}
		p.Position = len(players) + 1
		registered = p
		return append(players, p), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrBracketNotFound) {
			// First player of a bracket bootstraps it.
			p.Position = 1
			registered = p
			if err := s.store.Load(p.Bracket, []domain.Player{p}); err != nil {
				return nil, err
			}
			updated = []domain.Player{p}
		} else {
			return nil, err
		}
	}

	if err := s.repo.CreatePlayer(ctx, &registered); err != nil {
		return nil, err
	}
	s.publishStandings(ctx, p.Bracket, updated)
	return &registered, nil
}

// CheckEligibility evaluates a challenger/defender pair without side effects
func (s *LadderService) CheckEligibility(ctx context.Context, challengerID, defenderID string) (ladder.Eligibility, error) {
	challenger, err := s.store.FindPlayer(challengerID)
	if err != nil {
		return ladder.Eligibility{}, err
	}
	defender, err := s.store.FindPlayer(defenderID)
	if err != nil {
		return ladder.Eligibility{}, err
	}
	size := s.bracketSize(defender.Bracket)
	return ladder.Evaluate(&challenger, &defender, size, s.now()), nil
}

// CreateChallenge validates eligibility and opens a pending challenge
func (s *LadderService) CreateChallenge(ctx context.Context, req domain.CreateChallengeRequest) (*domain.Challenge, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown challenge type %q", domain.ErrInvalidRequest, req.Type)
	}

	challenger, err := s.store.FindPlayer(req.ChallengerID)
	if err != nil {
		return nil, err
	}
	defender, err := s.store.FindPlayer(req.DefenderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	elig := ladder.Evaluate(&challenger, &defender, s.bracketSize(defender.Bracket), now)
	if !elig.Allowed {
		return nil, &domain.IneligibleChallengeError{Rule: elig.Rule, Reason: elig.Reason}
	}
	if !elig.Permits(req.Type) {
		return nil, &domain.IneligibleChallengeError{
			Rule:   domain.RuleTypeNotAllowed,
			Reason: ladder.TypeReason(req.Type),
		}
	}

	details := domain.DefaultMatchDetails(defender.Bracket, req.Type)
	if req.Details != nil {
		details = *req.Details
	}

	ch := challenge.New(defender.Bracket, challenger.ID, defender.ID, req.Type, details, now)

	if err := s.repo.CreateChallenge(ctx, ch); err != nil {
		return nil, err
	}

	// An earned smackback right covers the holder's next challenge only:
	// using it or passing it up both spend it. It is spent once the
	// challenge is durably created, never before.
	if challenger.SmackBackEligible {
		if err := s.clearSmackBack(ctx, challenger.Bracket, challenger.ID); err != nil {
			s.logger.Error("failed to clear smackback right",
				"player_id", challenger.ID, "error", err)
		}
	}

	s.logger.Info("challenge created",
		"challenge_id", ch.ID,
		"type", ch.Type,
		"bracket", ch.Bracket,
		"challenger_id", ch.ChallengerID,
		"defender_id", ch.DefenderID,
	)
	s.notifyChallenge("created", ch)
	return ch, nil
}

// GetChallenge retrieves a challenge
func (s *LadderService) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	return s.repo.GetChallenge(ctx, challengeID)
}

// ListChallengesByPlayer retrieves a player's challenges, most recent first
func (s *LadderService) ListChallengesByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Challenge, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListChallengesByPlayer(ctx, playerID, limit)
}

// ListMatchesByPlayer retrieves a player's match history
func (s *LadderService) ListMatchesByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMatchesByPlayer(ctx, playerID, limit)
}

// Respond applies accept, decline or counter to an open challenge. Accepting
// also confirms: agreed terms are immediately locked in.
func (s *LadderService) Respond(ctx context.Context, challengeID, action string, req domain.RespondRequest) (*domain.Challenge, error) {
	unlock, err := s.lockChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ch, err := s.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch action {
	case "accept":
		if err := challenge.Accept(ch, req.PlayerID, now); err != nil {
			return nil, err
		}
		if err := challenge.Confirm(ch, now); err != nil {
			return nil, err
		}
	case "decline":
		if err := challenge.Decline(ch, req.PlayerID, now); err != nil {
			return nil, err
		}
	case "counter":
		if req.Details == nil {
			return nil, fmt.Errorf("%w: counter requires match details", domain.ErrInvalidRequest)
		}
		if err := challenge.Counter(ch, req.PlayerID, *req.Details, now); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, action)
	}

	if err := s.repo.UpdateChallenge(ctx, ch); err != nil {
		return nil, err
	}
	s.logger.Info("challenge responded",
		"challenge_id", ch.ID,
		"action", action,
		"status", ch.Status,
		"player_id", req.PlayerID,
	)
	s.notifyChallenge(action, ch)
	return ch, nil
}

// Cancel withdraws an open challenge
func (s *LadderService) Cancel(ctx context.Context, challengeID, playerID string) (*domain.Challenge, error) {
	unlock, err := s.lockChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ch, err := s.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if err := challenge.Cancel(ch, playerID, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateChallenge(ctx, ch); err != nil {
		return nil, err
	}
	s.notifyChallenge("cancelled", ch)
	return ch, nil
}

// ReportResult completes a confirmed challenge and moves the ladder. The
// whole sequence runs under the challenge lock, the position mutation under
// the bracket lock; a duplicate report fails on the completed status.
func (s *LadderService) ReportResult(ctx context.Context, req domain.ReportResultRequest) error {
	unlock, err := s.lockChallenge(req.ChallengeID)
	if err != nil {
		return err
	}
	defer unlock()

	ch, err := s.repo.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		return err
	}

	now := s.now()
	result := domain.Result{WinnerID: req.WinnerID, Score: req.Score}
	if err := challenge.Complete(ch, result, now); err != nil {
		return err
	}

	// Persist the completed status before any position moves. A failed write
	// leaves the ladder untouched and the challenge confirmed, so the caller
	// can retry; once it lands, a duplicate report fails on the status check.
	if err := s.repo.UpdateChallenge(ctx, ch); err != nil {
		return err
	}

	var summary ladder.MoveSummary
	var touched []domain.Player

	if ch.Type == domain.TypeLadderJump {
		challenger, err := s.store.FindPlayer(ch.ChallengerID)
		if err != nil {
			s.logger.Error("completed challenge left ladder unmoved",
				"challenge_id", ch.ID, "error", err)
			return err
		}
		lowerBracket := challenger.Bracket
		err = s.store.UpdatePair(lowerBracket, ch.Bracket, func(low, high []domain.Player) ([]domain.Player, []domain.Player, error) {
			newLow, newHigh, sum, err := ladder.ApplyLadderJump(low, high, ch, now)
			if err != nil {
				return nil, nil, err
			}
			summary = sum
			touched = append(append([]domain.Player{}, newLow...), newHigh...)
			return newLow, newHigh, nil
		})
		if err != nil {
			s.logger.Error("completed challenge left ladder unmoved",
				"challenge_id", ch.ID, "error", err)
			return err
		}
	} else {
		updated, _, err := s.store.Update(ch.Bracket, func(players []domain.Player) ([]domain.Player, error) {
			moved, sum, err := ladder.Apply(players, ch, now)
			if err != nil {
				return nil, err
			}
			summary = sum
			return moved, nil
		})
		if err != nil {
			s.logger.Error("completed challenge left ladder unmoved",
				"challenge_id", ch.ID, "error", err)
			return err
		}
		touched = updated
	}

	// The store is the position source of truth; a failed row write here is
	// healed by the next batch over the same bracket.
	if err := s.repo.BatchUpdateStandings(ctx, touched); err != nil {
		s.logger.Error("failed to persist standings", "challenge_id", ch.ID, "error", err)
	}

	match := &domain.Match{
		ID:                  uuid.New().String(),
		ChallengeID:         ch.ID,
		Bracket:             ch.Bracket,
		ChallengerID:        ch.ChallengerID,
		DefenderID:          ch.DefenderID,
		WinnerID:            req.WinnerID,
		Score:               req.Score,
		MatchType:           ch.Type,
		Venue:               ch.Details.Location,
		ChallengerPosBefore: summary.ChallengerPosBefore,
		ChallengerPosAfter:  summary.ChallengerPosAfter,
		DefenderPosBefore:   summary.DefenderPosBefore,
		DefenderPosAfter:    summary.DefenderPosAfter,
		CompletedAt:         now,
	}
	if err := s.repo.RecordMatch(ctx, match); err != nil {
		s.logger.Error("failed to record match", "challenge_id", ch.ID, "error", err)
	}

	s.logger.Info("result applied",
		"challenge_id", ch.ID,
		"type", ch.Type,
		"winner_id", req.WinnerID,
		"challenger_pos", fmt.Sprintf("%d->%d", summary.ChallengerPosBefore, summary.ChallengerPosAfter),
		"defender_pos", fmt.Sprintf("%d->%d", summary.DefenderPosBefore, summary.DefenderPosAfter),
	)

	s.notifyChallenge("completed", ch)
	s.publishBrackets(ctx, ch)
	return nil
}

// ExpireDueChallenges transitions all overdue open challenges to expired and
// returns how many were swept
func (s *LadderService) ExpireDueChallenges(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repo.ListOverdueChallenges(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range overdue {
		ch := &overdue[i]
		unlock, err := s.lockChallenge(ch.ID)
		if err != nil {
			// Someone is responding right now; the response wins.
			continue
		}

		// Re-read under the lock: a response may have landed since the scan.
		current, err := s.repo.GetChallenge(ctx, ch.ID)
		if err != nil {
			unlock()
			continue
		}
		changed, err := challenge.Expire(current, now)
		if err != nil || !changed {
			unlock()
			continue
		}
		if err := s.repo.UpdateChallenge(ctx, current); err != nil {
			unlock()
			s.logger.Error("failed to persist expiry", "challenge_id", current.ID, "error", err)
			continue
		}
		unlock()
		expired++
		s.notifyChallenge("expired", current)
	}

	if expired > 0 {
		s.logger.Info("expired overdue challenges", "count", expired)
	}
	return expired, nil
}

// SuggestOpponents runs Smart Match for a player
func (s *LadderService) SuggestOpponents(ctx context.Context, playerID string) ([]domain.RankedSuggestion, error) {
	challenger, err := s.store.FindPlayer(playerID)
	if err != nil {
		return nil, err
	}

	lastMatch, err := s.repo.LastMatchByPlayer(ctx)
	if err != nil {
		s.logger.Warn("last match lookup failed, scoring without recency", "error", err)
		lastMatch = map[string]time.Time{}
	}
	busy, err := s.busyPlayers(ctx)
	if err != nil {
		s.logger.Warn("open challenge lookup failed, scoring without schedule conflicts", "error", err)
		busy = map[string]bool{}
	}

	var candidates []suggest.Candidate
	sizes := make(map[domain.Bracket]int)
	for _, bracket := range s.store.BracketNames() {
		players, _, err := s.store.Snapshot(bracket)
		if err != nil {
			return nil, err
		}
		sizes[bracket] = len(players)
		for _, p := range players {
			if p.ID == playerID {
				continue
			}
			cand := suggest.Candidate{Player: p, Busy: busy[p.ID]}
			if at, ok := lastMatch[p.ID]; ok {
				t := at
				cand.LastMatchAt = &t
			}
			candidates = append(candidates, cand)
		}
	}

	return s.scorer.Suggest(challenger, busy[playerID], candidates, sizes), nil
}

// RecordSuggestionOutcome feeds one suggestion outcome back into the
// learned-preference history
func (s *LadderService) RecordSuggestionOutcome(ctx context.Context, fb domain.SuggestionFeedback) error {
	if !fb.Outcome.Valid() {
		return fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidRequest, fb.Outcome)
	}
	if fb.CandidateID == "" || fb.ChallengerID == "" {
		return fmt.Errorf("%w: challenger and candidate ids required", domain.ErrInvalidRequest)
	}
	if fb.RecordedAt.IsZero() {
		fb.RecordedAt = s.now()
	}
	s.history.Record(fb)
	return s.repo.RecordSuggestionFeedback(ctx, fb)
}

// busyPlayers returns the set of players with a match already locked in
func (s *LadderService) busyPlayers(ctx context.Context) (map[string]bool, error) {
	open, err := s.repo.ListOpenChallenges(ctx)
	if err != nil {
		return nil, err
	}
	busy := make(map[string]bool)
	for i := range open {
		if open[i].Status == domain.StatusConfirmed || open[i].Status == domain.StatusAccepted {
			busy[open[i].ChallengerID] = true
			busy[open[i].DefenderID] = true
		}
	}
	return busy, nil
}

// lockChallenge takes the per-challenge mutex without blocking. A held lock
// means another report or response is mid-flight.
func (s *LadderService) lockChallenge(challengeID string) (func(), error) {
	v, _ := s.challengeLocks.LoadOrStore(challengeID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, domain.ErrConcurrencyConflict
	}
	return mu.Unlock, nil
}

func (s *LadderService) bracketSize(bracket domain.Bracket) int {
	players, _, err := s.store.Snapshot(bracket)
	if err != nil {
		return 0
	}
	return len(players)
}

// clearSmackBack consumes a player's earned smackback right
func (s *LadderService) clearSmackBack(ctx context.Context, bracket domain.Bracket, playerID string) error {
	var cleared domain.Player
	_, _, err := s.store.Update(bracket, func(players []domain.Player) ([]domain.Player, error) {
		for i := range players {
			if players[i].ID == playerID {
				players[i].SmackBackEligible = false
				players[i].UpdatedAt = s.now()
				cleared = players[i]
				return players, nil
			}
		}
		return nil, domain.ErrPlayerNotFound
	})
	if err != nil {
		return err
	}
	return s.repo.UpdatePlayer(ctx, &cleared)
}

// publishBrackets refreshes mirror and subscribers for every bracket a
// completed challenge touched
func (s *LadderService) publishBrackets(ctx context.Context, ch *domain.Challenge) {
	brackets := map[domain.Bracket]bool{ch.Bracket: true}
	if ch.Type == domain.TypeLadderJump {
		// The challenger may now be in either bracket; refresh both sides.
		for _, b := range s.store.BracketNames() {
			brackets[b] = true
		}
	}
	for b := range brackets {
		players, _, err := s.store.Snapshot(b)
		if err != nil {
			continue
		}
		s.publishStandings(ctx, b, players)
	}
}

func (s *LadderService) publishStandings(ctx context.Context, bracket domain.Bracket, players []domain.Player) {
	if s.mirror != nil {
		if err := s.mirror.ReplaceBracket(ctx, bracket, players); err != nil {
			s.logger.Warn("failed to refresh standings mirror", "bracket", bracket, "error", err)
		}
	}
	if s.notifier != nil {
		entries := make([]domain.StandingEntry, len(players))
		for i, p := range players {
			entries[i] = domain.StandingEntry{
				Position: p.Position,
				PlayerID: p.ID,
				Name:     p.Name(),
				Wins:     p.Wins,
				Losses:   p.Losses,
			}
		}
		s.notifier.BroadcastStandings(bracket, entries)
	}
}

func (s *LadderService) notifyChallenge(event string, ch *domain.Challenge) {
	if s.notifier != nil {
		s.notifier.BroadcastChallengeEvent(event, ch)
	}
}
