package estimation

import "sort"

type VoteKey struct {
	Phase       string
	Participant string
}

type VoteChange struct {
	VoteKey
	Value EstimateValue
}

type StatusChange struct {
	Participant string
	Finished    bool
	Modified    bool
}

type EstimateChange struct {
	Phase string
	Value EstimateValue
}

// Changes is the per-key difference between two states. Persistence writes
// exactly these keys, so writers touching different keys never overwrite
// each other.
type Changes struct {
	VotesSet         []VoteChange
	VotesDeleted     []VoteKey
	Statuses         []StatusChange
	Joined           []string
	Left             []string
	EstimatesSet     []EstimateChange
	EstimatesDeleted []string
	RevealedChanged  bool
	Revealed         bool
}

func (c Changes) Empty() bool {
	return len(c.VotesSet) == 0 &&
		len(c.VotesDeleted) == 0 &&
		len(c.Statuses) == 0 &&
		len(c.Joined) == 0 &&
		len(c.Left) == 0 &&
		len(c.EstimatesSet) == 0 &&
		len(c.EstimatesDeleted) == 0 &&
		!c.RevealedChanged
}

func Diff(prev, next State) Changes {
	var changes Changes

	for _, phase := range unionKeys(prev.Votes, next.Votes) {
		before := prev.Votes[phase]
		after := next.Votes[phase]
		for _, name := range unionKeys(before, after) {
			oldValue, hadOld := before[name]
			newValue, hasNew := after[name]
			key := VoteKey{Phase: phase, Participant: name}
			switch {
			case hasNew && (!hadOld || oldValue != newValue):
				changes.VotesSet = append(changes.VotesSet, VoteChange{VoteKey: key, Value: newValue})
			case hadOld && !hasNew:
				changes.VotesDeleted = append(changes.VotesDeleted, key)
			}
		}
	}

	names := unionKeys(prev.Finished, next.Finished)
	names = append(names, unionKeys(prev.Modified, next.Modified)...)
	for _, name := range dedupeSorted(names) {
		if prev.Finished[name] == next.Finished[name] && prev.Modified[name] == next.Modified[name] {
			continue
		}
		changes.Statuses = append(changes.Statuses, StatusChange{
			Participant: name,
			Finished:    next.Finished[name],
			Modified:    next.Modified[name],
		})
	}

	before := make(map[string]struct{}, len(prev.Participants))
	for _, name := range prev.Participants {
		before[name] = struct{}{}
	}
	after := make(map[string]struct{}, len(next.Participants))
	for _, name := range next.Participants {
		after[name] = struct{}{}
		if _, ok := before[name]; !ok {
			changes.Joined = append(changes.Joined, name)
		}
	}
	for _, name := range prev.Participants {
		if _, ok := after[name]; !ok {
			changes.Left = append(changes.Left, name)
		}
	}

	for _, phase := range unionKeys(prev.AdminEstimates, next.AdminEstimates) {
		oldValue, hadOld := prev.AdminEstimates[phase]
		newValue, hasNew := next.AdminEstimates[phase]
		switch {
		case hasNew && (!hadOld || oldValue != newValue):
			changes.EstimatesSet = append(changes.EstimatesSet, EstimateChange{Phase: phase, Value: newValue})
		case hadOld && !hasNew:
			changes.EstimatesDeleted = append(changes.EstimatesDeleted, phase)
		}
	}

	if prev.Revealed != next.Revealed {
		changes.RevealedChanged = true
		changes.Revealed = next.Revealed
	}
	return changes
}

func unionKeys[V any](a, b map[string]V) []string {
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
	}
	for key := range b {
		if _, ok := a[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func dedupeSorted(values []string) []string {
	sort.Strings(values)
	out := make([]string, 0, len(values))
	for _, value := range values {
		if len(out) > 0 && out[len(out)-1] == value {
			continue
		}
		out = append(out, value)
	}
	return out
}
