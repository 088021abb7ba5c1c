// Package suggest implements Smart Match: read-only ranking of candidate
// opponents by a blended confidence score. The blend weights ease of
// actually scheduling the match over raw ranking proximity, which is why
// availability dominates.
package suggest

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pool-ladder/internal/domain"
	"github.com/pool-ladder/internal/ladder"
)

// Confidence bounds and blend weights. The base block (position, activity,
// win rate, learned preference) carries 20%; availability 50%, location 25%,
// schedule conflicts 5%.
const (
	MinConfidence = 10
	MaxConfidence = 95

	baseScore = 50

	weightBase         = 0.20
	weightAvailability = 0.50
	weightLocation     = 0.25
	weightSchedule     = 0.05

	// MaxSuggestions caps the returned list.
	MaxSuggestions = 10
)

// Perfect-match thresholds: all three must hold simultaneously.
const (
	perfectAvailability = 0.7
	perfectLocation     = 0.6
	perfectSchedule     = 0.8
)

// Candidate bundles a potential opponent with their scheduling context.
type Candidate struct {
	Player domain.Player
	// LastMatchAt is the candidate's most recent recorded match, nil when
	// they have no history.
	LastMatchAt *time.Time
	// Busy is true when the candidate has a match scheduled within the
	// next 7 days.
	Busy bool
}

// Scorer ranks candidate opponents for a challenger. Pure reads only; it
// never mutates ladder state.
type Scorer struct {
	history *History
	now     func() time.Time
	logger  *slog.Logger
}

// NewScorer creates a scorer backed by the given outcome history.
func NewScorer(history *History, now func() time.Time, logger *slog.Logger) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{history: history, now: now, logger: logger}
}

// Suggest scores every eligible candidate and returns the top suggestions
// in descending confidence order, one entry per opponent even when several
// challenge types apply. bracketSizes supplies bracket populations for the
// cross-bracket ladder-jump cut.
func (s *Scorer) Suggest(challenger domain.Player, challengerBusy bool, candidates []Candidate, bracketSizes map[domain.Bracket]int) []domain.RankedSuggestion {
	now := s.now()
	suggestions := make([]domain.RankedSuggestion, 0, len(candidates))

	for _, cand := range candidates {
		elig := ladder.Evaluate(&challenger, &cand.Player, bracketSizes[cand.Player.Bracket], now)
		if !elig.Allowed {
			continue
		}
		suggestions = append(suggestions, s.score(challenger, challengerBusy, cand, elig, now))
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Position < suggestions[j].Position
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

func (s *Scorer) score(challenger domain.Player, challengerBusy bool, cand Candidate, elig ladder.Eligibility, now time.Time) domain.RankedSuggestion {
	raw := float64(baseScore)
	raw += positionBonus(&challenger, &cand.Player)
	raw += recencyBonus(cand.LastMatchAt, now)
	raw += winRateAdjustment(&cand.Player)
	raw += PreferenceBonus(s.history.ForCandidate(cand.Player.ID))
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}

	avail := AvailabilityOverlap(challenger.Availability, cand.Player.Availability)
	loc := LocationOverlap(challenger.Locations, cand.Player.Locations)
	sched := ScheduleScore(challengerBusy, cand.Busy)

	blended := weightBase*raw +
		weightAvailability*avail*100 +
		weightLocation*loc*100 +
		weightSchedule*sched*100

	confidence := int(math.Round(blended))
	if confidence < MinConfidence {
		confidence = MinConfidence
	}
	if confidence > MaxConfidence {
		confidence = MaxConfidence
	}

	perfect := avail >= perfectAvailability && loc >= perfectLocation && sched >= perfectSchedule

	return domain.RankedSuggestion{
		PlayerID:          cand.Player.ID,
		Name:              cand.Player.Name(),
		Position:          cand.Player.Position,
		Bracket:           cand.Player.Bracket,
		Confidence:        confidence,
		Reason:            reason(&challenger, &cand.Player, elig, avail, perfect),
		MatchTypes:        elig.AllowedTypes,
		AvailabilityScore: avail,
		LocationScore:     loc,
		ScheduleScore:     sched,
		PerfectMatch:      perfect,
	}
}

// positionBonus rewards close rivals: +25 at one spot apart, decaying to +5
// by eight spots. Cross-bracket pairs get the floor value.
func positionBonus(challenger, candidate *domain.Player) float64 {
	if challenger.Bracket != candidate.Bracket {
		return 5
	}
	diff := challenger.Position - candidate.Position
	if diff < 0 {
		diff = -diff
	}
	bonus := 25 - float64(diff-1)*3
	if bonus < 5 {
		bonus = 5
	}
	return bonus
}

// recencyBonus favors active opponents: +20 when their last match was a day
// ago or less, linearly decaying to a -5 penalty at 60 days of inactivity.
// No history at all is scored neutrally.
func recencyBonus(lastMatchAt *time.Time, now time.Time) float64 {
	if lastMatchAt == nil {
		return 0
	}
	days := now.Sub(*lastMatchAt).Hours() / 24
	switch {
	case days <= 1:
		return 20
	case days >= 60:
		return -5
	default:
		return 20 - (days-1)*25/59
	}
}

// winRateAdjustment scales a ±15 swing by sample size: established players
// (≥10 matches) get the full swing, 5-9 matches a proportional one, and
// small samples a flat +5 encouragement rather than a verdict.
func winRateAdjustment(p *domain.Player) float64 {
	n := p.TotalMatches()
	if n < 5 {
		return 5
	}
	swing := (p.WinRate() - 0.5) * 30
	if n >= 10 {
		return swing
	}
	return swing * float64(n) / 10
}

func reason(challenger, candidate *domain.Player, elig ladder.Eligibility, avail float64, perfect bool) string {
	var base string
	switch elig.AllowedTypes[0] {
	case domain.TypeChallenge:
		base = fmt.Sprintf("%s is %s above you", candidate.Name(), spots(challenger.Position-candidate.Position))
	case domain.TypeSmackDown:
		base = fmt.Sprintf("%s is %s below you", candidate.Name(), spots(candidate.Position-challenger.Position))
	case domain.TypeSmackBack:
		base = fmt.Sprintf("you earned a smackback shot at %s for first place", candidate.Name())
	case domain.TypeLadderJump:
		base = fmt.Sprintf("%s plays near the bottom of the %s bracket", candidate.Name(), candidate.Bracket)
	}

	switch {
	case perfect:
		return base + " and your schedules line up perfectly"
	case avail >= perfectAvailability:
		return base + " with strong availability overlap"
	default:
		return base
	}
}

func spots(n int) string {
	if n == 1 {
		return "1 spot"
	}
	return fmt.Sprintf("%d spots", n)
}
