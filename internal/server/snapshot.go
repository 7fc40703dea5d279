package server

import "planning-poker/internal/estimation"

// sessionSnapshot is what one viewer receives for a room, over HTTP and on
// the websocket.
type sessionSnapshot struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	JoinCode  string `json:"join_code"`
	estimation.View
}

func (s *Server) snapshot(session Session, viewer estimation.Viewer) sessionSnapshot {
	return sessionSnapshot{
		Type:      "snapshot",
		SessionID: session.ID,
		JoinCode:  session.JoinCode,
		View:      s.machine.View(session.State, viewer),
	}
}

func (s *Server) snapshotForClient(session Session, client *wsClient) sessionSnapshot {
	viewer := estimation.Viewer{
		Name:  s.sessions.ClaimedName(client.browser, session.ID),
		Admin: s.admins.Valid(client.adminToken, session.ID),
	}
	return s.snapshot(session, viewer)
}
