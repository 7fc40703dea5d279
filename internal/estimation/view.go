package estimation

// Viewer is the local actor a view is computed for.
type Viewer struct {
	Name  string
	Admin bool
}

type ViewerStatus struct {
	Name      string `json:"name"`
	Validated bool   `json:"validated"`
	Admin     bool   `json:"admin"`
	Finished  bool   `json:"finished"`
	Modified  bool   `json:"modified"`
	CanVote   bool   `json:"can_vote"`
}

type PhaseView struct {
	ID            string                   `json:"id"`
	Label         string                   `json:"label"`
	MyVote        *EstimateValue           `json:"my_vote"`
	Voters        []string                 `json:"voters"`
	Votes         map[string]EstimateValue `json:"votes,omitempty"`
	Average       *float64                 `json:"average,omitempty"`
	AverageText   string                   `json:"average_text,omitempty"`
	AdminEstimate *EstimateValue           `json:"admin_estimate,omitempty"`
}

// View is what one viewer is allowed to see of a session.
type View struct {
	Viewer              ViewerStatus      `json:"viewer"`
	Revealed            bool              `json:"revealed"`
	Participants        []string          `json:"participants"`
	Phases              []PhaseView       `json:"phases"`
	Scale               []ScaleEntry      `json:"scale"`
	FinishedVoting      map[string]bool   `json:"finished_voting"`
	ModifiedVoting      map[string]bool   `json:"modified_voting"`
	GroupTotal          string            `json:"group_total,omitempty"`
	PersonalTotals      map[string]string `json:"personal_totals,omitempty"`
	AdminValidatedTotal string            `json:"admin_validated_total,omitempty"`
	MyTotal             string            `json:"my_total"`
}

// View projects state for viewer. Values of other participants and all
// aggregates stay hidden from non-admins until the session is revealed.
func (m *Machine) View(state State, viewer Viewer) View {
	validated := viewer.Name != "" && state.HasParticipant(viewer.Name)
	showAll := viewer.Admin || state.Revealed
	out := View{
		Viewer: ViewerStatus{
			Name:      viewer.Name,
			Validated: validated,
			Admin:     viewer.Admin,
			Finished:  validated && state.Finished[viewer.Name],
			Modified:  validated && state.Modified[viewer.Name],
			CanVote:   validated && !state.Revealed,
		},
		Revealed:       state.Revealed,
		Participants:   append([]string{}, state.Participants...),
		Phases:         make([]PhaseView, 0, len(m.catalog.Phases)),
		Scale:          append([]ScaleEntry{}, m.catalog.Scale...),
		FinishedVoting: make(map[string]bool, len(state.Participants)),
		ModifiedVoting: make(map[string]bool, len(state.Participants)),
	}
	for _, name := range state.Participants {
		out.FinishedVoting[name] = state.Finished[name]
		out.ModifiedVoting[name] = state.Modified[name]
	}
	for _, phase := range m.catalog.Phases {
		view := PhaseView{
			ID:     phase.ID,
			Label:  phase.Label,
			Voters: []string{},
		}
		if validated {
			if value, ok := state.VoteOf(phase.ID, viewer.Name); ok {
				v := value
				view.MyVote = &v
			}
		}
		for _, name := range state.Participants {
			if _, ok := state.VoteOf(phase.ID, name); ok {
				view.Voters = append(view.Voters, name)
			}
		}
		if showAll {
			view.Votes = make(map[string]EstimateValue, len(view.Voters))
			for _, name := range view.Voters {
				value, _ := state.VoteOf(phase.ID, name)
				view.Votes[name] = value
			}
			average := Round2(m.AveragePerPhase(state, phase.ID))
			view.Average = &average
			view.AverageText = FormatEstimate(average)
			if value, ok := state.AdminEstimates[phase.ID]; ok {
				v := value
				view.AdminEstimate = &v
			}
		}
		out.Phases = append(out.Phases, view)
	}
	if validated {
		out.MyTotal = FormatEstimate(m.PersonalTotal(state, viewer.Name))
	} else {
		out.MyTotal = FormatEstimate(0)
	}
	if showAll {
		out.GroupTotal = FormatEstimate(m.GroupTotalEstimate(state))
		out.PersonalTotals = make(map[string]string, len(state.Participants))
		for _, name := range state.Participants {
			out.PersonalTotals[name] = FormatEstimate(m.PersonalTotal(state, name))
		}
		out.AdminValidatedTotal = FormatEstimate(m.AdminValidatedTotal(state))
	}
	return out
}
