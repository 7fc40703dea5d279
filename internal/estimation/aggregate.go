package estimation

import (
	"math"
	"strconv"
)

// AveragePerPhase is the mean of the roster's recorded votes for phase, or 0
// when nobody on the roster voted.
func (m *Machine) AveragePerPhase(state State, phase string) float64 {
	votes := state.Votes[phase]
	if len(votes) == 0 {
		return 0
	}
	sum := 0.0
	count := 0
	for _, name := range state.Participants {
		value, ok := votes[name]
		if !ok {
			continue
		}
		sum += float64(value)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// GroupTotalEstimate sums AveragePerPhase over every catalog phase.
func (m *Machine) GroupTotalEstimate(state State) float64 {
	total := 0.0
	for _, phase := range m.catalog.Phases {
		total += m.AveragePerPhase(state, phase.ID)
	}
	return Round2(total)
}

// PersonalTotal sums the participant's own votes across the phases they voted on.
func (m *Machine) PersonalTotal(state State, name string) float64 {
	total := 0.0
	for _, phase := range m.catalog.Phases {
		if value, ok := state.VoteOf(phase.ID, name); ok {
			total += float64(value)
		}
	}
	return Round2(total)
}

func (m *Machine) AdminValidatedTotal(state State) float64 {
	total := 0.0
	for _, phase := range m.catalog.Phases {
		if value, ok := state.AdminEstimates[phase.ID]; ok {
			total += float64(value)
		}
	}
	return Round2(total)
}

// Round2 rounds half away from zero to two decimals.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// FormatEstimate renders a value the way totals are displayed, e.g. "3.00".
func FormatEstimate(value float64) string {
	return strconv.FormatFloat(Round2(value), 'f', 2, 64)
}
