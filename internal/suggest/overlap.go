package suggest

import (
	"strings"
	"time"

	"github.com/pool-ladder/internal/domain"
)

// neutralScore is the fallback when one side has no declared data. Missing
// availability or venue data is never an error, just uninformative.
const neutralScore = 0.5

// AvailabilityOverlap returns the fraction of declared weekdays on which
// both players have intersecting free windows, over the days either player
// declared. Identical schedules score 1.0.
func AvailabilityOverlap(a, b domain.Availability) float64 {
	if a.Empty() || b.Empty() {
		return neutralScore
	}

	declared := 0
	matched := 0
	for day := 0; day < 7; day++ {
		wa := a[weekday(day)]
		wb := b[weekday(day)]
		if len(wa) == 0 && len(wb) == 0 {
			continue
		}
		declared++
		if windowsIntersect(wa, wb) {
			matched++
		}
	}
	if declared == 0 {
		return neutralScore
	}
	return float64(matched) / float64(declared)
}

func windowsIntersect(a, b []domain.TimeWindow) bool {
	for _, wa := range a {
		for _, wb := range b {
			if wa.Overlaps(wb) {
				return true
			}
		}
	}
	return false
}

// LocationOverlap returns the fraction of preferred venues the two players
// share. Matching is case-insensitive and substring-tolerant, so
// "Legends Brews & Cues" matches "legends".
func LocationOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return neutralScore
	}

	matched := 0
	for _, va := range a {
		for _, vb := range b {
			if venuesMatch(va, vb) {
				matched++
				break
			}
		}
	}

	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(matched) / float64(denom)
}

func venuesMatch(a, b string) bool {
	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// ScheduleScore reflects how free the pair is in the coming week: 1.0 when
// neither has a match on the books, 0.6 when one does, 0.3 when both do.
func ScheduleScore(challengerBusy, candidateBusy bool) float64 {
	switch {
	case !challengerBusy && !candidateBusy:
		return 1.0
	case challengerBusy && candidateBusy:
		return 0.3
	default:
		return 0.6
	}
}

func weekday(d int) time.Weekday {
	return time.Weekday(d)
}
