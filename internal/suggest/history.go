package suggest

import (
	"sync"

	"github.com/pool-ladder/internal/domain"
)

// DefaultHistorySize bounds the suggestion-outcome history.
const DefaultHistorySize = 1000

// History is a bounded, thread-safe ring buffer of suggestion→outcome pairs.
// Once full, the oldest entries are overwritten, so memory stays fixed no
// matter how long the league runs.
type History struct {
	mu      sync.RWMutex
	entries []domain.SuggestionFeedback
	next    int
	full    bool
}

// NewHistory creates a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{entries: make([]domain.SuggestionFeedback, capacity)}
}

// Record appends one feedback entry, evicting the oldest when full.
func (h *History) Record(fb domain.SuggestionFeedback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = fb
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.full = true
	}
}

// Cap returns the history's fixed capacity.
func (h *History) Cap() int {
	return len(h.entries)
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// ForCandidate returns all stored feedback about the given opponent.
func (h *History) ForCandidate(candidateID string) []domain.SuggestionFeedback {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []domain.SuggestionFeedback
	limit := h.next
	if h.full {
		limit = len(h.entries)
	}
	for i := 0; i < limit; i++ {
		if h.entries[i].CandidateID == candidateID {
			out = append(out, h.entries[i])
		}
	}
	return out
}

// preferenceSampleMin is the minimum feedback count before the learned
// bonus kicks in; below it there is nothing worth learning from.
const preferenceSampleMin = 3

// PreferenceBonus derives a confidence adjustment in [-10, 10] from an
// opponent's suggestion history: opponents who respond and play get a
// boost, habitual non-responders get penalized.
func PreferenceBonus(entries []domain.SuggestionFeedback) float64 {
	if len(entries) < preferenceSampleMin {
		return 0
	}

	var responded, positive int
	for _, e := range entries {
		switch e.Outcome {
		case domain.OutcomeAccepted, domain.OutcomePlayed:
			responded++
			positive++
		case domain.OutcomeDeclined:
			responded++
		}
	}

	total := float64(len(entries))
	responseRate := float64(responded) / total
	successRate := float64(positive) / total

	bonus := (responseRate-0.5)*12 + (successRate-0.5)*8
	if bonus > 10 {
		bonus = 10
	}
	if bonus < -10 {
		bonus = -10
	}
	return bonus
}
