package estimation

// Actor is whoever triggers an action: a participant (by pseudonym), an
// admin holding a valid capability, or both.
type Actor struct {
	Name  string
	Admin bool
}

// Action is one user intent applied through Machine.Apply.
type Action interface {
	Type() string
}

type Join struct {
	Name string
	// Reclaim lets a browser session re-enter under the name it already
	// claimed, so a page reload does not collide with itself.
	Reclaim bool
}

type CastVote struct {
	Phase string
	Value EstimateValue
}

type DeclareFinished struct{}

type Reveal struct{}

type ResetPhase struct {
	Phase string
}

type ResetVotes struct{}

type ResetAll struct{}

type ValidateEstimate struct {
	Phase string
	Value EstimateValue
}

func (Join) Type() string             { return "participant_joined" }
func (CastVote) Type() string         { return "vote_cast" }
func (DeclareFinished) Type() string  { return "voting_finished" }
func (Reveal) Type() string           { return "estimations_revealed" }
func (ResetPhase) Type() string       { return "phase_reset" }
func (ResetVotes) Type() string       { return "votes_reset" }
func (ResetAll) Type() string         { return "session_reset" }
func (ValidateEstimate) Type() string { return "admin_estimate_validated" }

// Machine applies actions against a fixed catalog.
type Machine struct {
	catalog Catalog
}

func NewMachine(catalog Catalog) *Machine {
	return &Machine{catalog: catalog}
}

func (m *Machine) Catalog() Catalog {
	return m.catalog
}

// Apply computes the state that follows action. The input state is never
// modified; on error it is returned as is.
func (m *Machine) Apply(state State, actor Actor, action Action) (State, error) {
	if err := m.authorize(state, actor, action); err != nil {
		return state, err
	}
	next := state.Clone()
	var err error
	switch a := action.(type) {
	case Join:
		err = m.join(&next, a)
	case CastVote:
		err = m.castVote(&next, actor.Name, a)
	case DeclareFinished:
		next.Finished[actor.Name] = true
		next.Modified[actor.Name] = false
	case Reveal:
		next.Revealed = true
	case ResetPhase:
		err = m.resetPhase(&next, a.Phase)
	case ResetVotes:
		clearVotes(&next)
	case ResetAll:
		clearVotes(&next)
		next.Participants = []string{}
	case ValidateEstimate:
		err = m.validateEstimate(&next, a)
	}
	if err != nil {
		return state, err
	}
	return next, nil
}

func (m *Machine) authorize(state State, actor Actor, action Action) error {
	switch action.(type) {
	case Join:
		return nil
	case CastVote, DeclareFinished:
		if actor.Name == "" || !state.HasParticipant(actor.Name) {
			return ErrNotParticipant
		}
		return nil
	case Reveal, ResetPhase, ResetVotes, ResetAll, ValidateEstimate:
		if !actor.Admin {
			return ErrAdminRequired
		}
		return nil
	default:
		return ErrUnknownAction
	}
}

func (m *Machine) join(state *State, a Join) error {
	name := NormalizeName(a.Name)
	if name == "" {
		return ErrEmptyName
	}
	if state.HasParticipant(name) {
		if a.Reclaim {
			return nil
		}
		return ErrNameTaken
	}
	state.Participants = append(state.Participants, name)
	return nil
}

func (m *Machine) castVote(state *State, name string, a CastVote) error {
	if _, ok := m.catalog.Phase(a.Phase); !ok {
		return ErrUnknownPhase
	}
	if !m.catalog.HasValue(a.Value) {
		return ErrInvalidValue
	}
	if state.Revealed {
		return ErrRevealed
	}
	votes := state.Votes[a.Phase]
	if votes == nil {
		votes = make(map[string]EstimateValue)
		state.Votes[a.Phase] = votes
	}
	if current, ok := votes[name]; ok && current == a.Value {
		delete(votes, name)
		if len(votes) == 0 {
			delete(state.Votes, a.Phase)
		}
	} else {
		votes[name] = a.Value
	}
	if state.Finished[name] {
		state.Finished[name] = false
		state.Modified[name] = true
	}
	return nil
}

func (m *Machine) resetPhase(state *State, phase string) error {
	if _, ok := m.catalog.Phase(phase); !ok {
		return ErrUnknownPhase
	}
	delete(state.Votes, phase)
	delete(state.AdminEstimates, phase)
	for _, name := range state.Participants {
		delete(state.Finished, name)
		delete(state.Modified, name)
	}
	state.Revealed = false
	return nil
}

func (m *Machine) validateEstimate(state *State, a ValidateEstimate) error {
	if _, ok := m.catalog.Phase(a.Phase); !ok {
		return ErrUnknownPhase
	}
	if !m.catalog.HasValue(a.Value) {
		return ErrInvalidValue
	}
	if current, ok := state.AdminEstimates[a.Phase]; ok && current == a.Value {
		delete(state.AdminEstimates, a.Phase)
		return nil
	}
	state.AdminEstimates[a.Phase] = a.Value
	return nil
}

func clearVotes(state *State) {
	state.Votes = make(map[string]map[string]EstimateValue)
	state.Finished = make(map[string]bool)
	state.Modified = make(map[string]bool)
	state.AdminEstimates = make(map[string]EstimateValue)
	state.Revealed = false
}
