package server

import "planning-poker/internal/estimation"

type EventPayload struct {
	SessionID   string   `json:"session_id,omitempty"`
	JoinCode    string   `json:"join_code,omitempty"`
	Participant string   `json:"participant,omitempty"`
	Phase       string   `json:"phase,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Revealed    bool     `json:"revealed,omitempty"`
	Admin       bool     `json:"admin,omitempty"`
	Count       int      `json:"count,omitempty"`
}

func eventPayloadFor(session Session, actor estimation.Actor, action estimation.Action) EventPayload {
	payload := EventPayload{
		SessionID:   session.ID,
		Participant: actor.Name,
		Admin:       actor.Admin,
	}
	switch a := action.(type) {
	case estimation.Join:
		payload.Participant = estimation.NormalizeName(a.Name)
		payload.Count = len(session.State.Participants)
	case estimation.CastVote:
		payload.Phase = a.Phase
		if value, ok := session.State.VoteOf(a.Phase, actor.Name); ok {
			payload.Value = floatPtr(float64(value))
		}
	case estimation.Reveal:
		payload.Revealed = true
	case estimation.ResetPhase:
		payload.Phase = a.Phase
	case estimation.ValidateEstimate:
		payload.Phase = a.Phase
		if value, ok := session.State.AdminEstimates[a.Phase]; ok {
			payload.Value = floatPtr(float64(value))
		}
	}
	return payload
}
