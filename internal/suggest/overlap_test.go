package suggest

import (
	"testing"
	"time"

	"github.com/pool-ladder/internal/domain"
)

func TestAvailabilityOverlap(t *testing.T) {
	evening := []domain.TimeWindow{{Start: 18 * 60, End: 22 * 60}}
	morning := []domain.TimeWindow{{Start: 8 * 60, End: 11 * 60}}

	tests := []struct {
		name string
		a    domain.Availability
		b    domain.Availability
		want float64
	}{
		{
			"identical schedules",
			domain.Availability{time.Monday: evening, time.Wednesday: evening},
			domain.Availability{time.Monday: evening, time.Wednesday: evening},
			1.0,
		},
		{
			"disjoint windows on shared day",
			domain.Availability{time.Monday: evening},
			domain.Availability{time.Monday: morning},
			0.0,
		},
		{
			"half the declared days line up",
			domain.Availability{time.Monday: evening, time.Tuesday: evening},
			domain.Availability{time.Monday: evening, time.Thursday: evening},
			1.0 / 3.0,
		},
		{
			"no declared availability is neutral",
			nil,
			domain.Availability{time.Monday: evening},
			neutralScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailabilityOverlap(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("AvailabilityOverlap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdjacentWindowsDoNotOverlap(t *testing.T) {
	a := domain.TimeWindow{Start: 9 * 60, End: 12 * 60}
	b := domain.TimeWindow{Start: 12 * 60, End: 15 * 60}
	if a.Overlaps(b) {
		t.Error("half-open windows sharing an endpoint must not overlap")
	}
}

func TestLocationOverlap(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"same venue", []string{"Rack City"}, []string{"Rack City"}, 1.0},
		{"case and spacing", []string{" rack city "}, []string{"Rack City"}, 1.0},
		{"substring match", []string{"Legends"}, []string{"Legends Brews & Cues"}, 1.0},
		{"no shared venue", []string{"Rack City"}, []string{"Corner Pocket"}, 0.0},
		{"partial overlap", []string{"Rack City", "Corner Pocket"}, []string{"Rack City", "Break Room"}, 0.5},
		{"missing data is neutral", nil, []string{"Rack City"}, neutralScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocationOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("LocationOverlap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleScore(t *testing.T) {
	if got := ScheduleScore(false, false); got != 1.0 {
		t.Errorf("both free = %v, want 1.0", got)
	}
	if got := ScheduleScore(true, false); got != 0.6 {
		t.Errorf("one busy = %v, want 0.6", got)
	}
	if got := ScheduleScore(false, true); got != 0.6 {
		t.Errorf("one busy = %v, want 0.6", got)
	}
	if got := ScheduleScore(true, true); got != 0.3 {
		t.Errorf("both busy = %v, want 0.3", got)
	}
}
