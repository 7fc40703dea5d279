package server

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// HandleRemoteChange reloads a room another instance changed and pushes the
// fresh state to local subscribers. Rooms this process never loaded are
// ignored; they are read from the database on first access.
func (s *Server) HandleRemoteChange(sessionID, eventType string) {
	if s.db == nil {
		return
	}
	if _, ok := s.store.GetSession(sessionID); !ok {
		return
	}
	session, err := s.reloadSession(sessionID)
	if err != nil {
		if !errors.Is(err, errSessionNotFound) {
			log.Error().Err(err).Str("session_id", sessionID).Msg("failed to reload session")
		}
		return
	}
	log.Debug().Str("session_id", session.ID).Str("event", eventType).Msg("session reloaded from peer notice")
	s.broadcastSession(session.ID)
}
