// Package estimation holds the planning-poker state machine: the typed shared
// state of one estimation session, the actions participants and admins can
// take, and the pure reducer that turns one into the next.
package estimation

import (
	"slices"
	"strings"
)

// State is the shared aggregate of one estimation session.
type State struct {
	Votes          map[string]map[string]EstimateValue `json:"votes"`
	Finished       map[string]bool                     `json:"finishedVoting"`
	Modified       map[string]bool                     `json:"modifiedVoting"`
	Revealed       bool                                `json:"revealed"`
	Participants   []string                            `json:"participants"`
	AdminEstimates map[string]EstimateValue            `json:"adminValidatedEstimates"`
}

func NewState() State {
	return State{
		Votes:          make(map[string]map[string]EstimateValue),
		Finished:       make(map[string]bool),
		Modified:       make(map[string]bool),
		Participants:   []string{},
		AdminEstimates: make(map[string]EstimateValue),
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := NewState()
	out.Revealed = s.Revealed
	for phase, votes := range s.Votes {
		copied := make(map[string]EstimateValue, len(votes))
		for name, value := range votes {
			copied[name] = value
		}
		out.Votes[phase] = copied
	}
	for name, flag := range s.Finished {
		out.Finished[name] = flag
	}
	for name, flag := range s.Modified {
		out.Modified[name] = flag
	}
	out.Participants = append(out.Participants, s.Participants...)
	for phase, value := range s.AdminEstimates {
		out.AdminEstimates[phase] = value
	}
	return out
}

func (s State) HasParticipant(name string) bool {
	return slices.Contains(s.Participants, name)
}

func (s State) VoteOf(phase, name string) (EstimateValue, bool) {
	votes, ok := s.Votes[phase]
	if !ok {
		return 0, false
	}
	value, ok := votes[name]
	return value, ok
}

// NormalizeName trims a pseudonym and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
