package server

import (
	"time"

	"planning-poker/internal/estimation"
)

const (
	adminTokenHeader  = "X-Admin-Token"
	adminTokenQuery   = "admin_token"
	sessionCookieName = "pp_session"
)

type SessionSummary struct {
	ID           string
	JoinCode     string
	Participants int
	Revealed     bool
}

// Session is one estimation room held in memory.
type Session struct {
	ID        string
	DBID      uint
	JoinCode  string
	CreatedAt time.Time
	State     estimation.State
}

func (s Session) clone() Session {
	out := s
	out.State = s.State.Clone()
	return out
}
