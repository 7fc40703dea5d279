package server

import (
	"net/http"

	"planning-poker/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHome(c *gin.Context) {
	flash := s.sessions.PopFlash(c.Writer, c.Request)
	templ.Handler(web.Home(flash, s.cfg.DefaultSession, s.homeSummaries())).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleSessionView(c *gin.Context) {
	var uri sessionURI
	if !bindURI(c, &uri) {
		return
	}
	session, ok := s.lookupSession(uri.SessionID)
	if !ok {
		s.sessions.SetFlash(c.Writer, c.Request, "Session not found. Start a new one or check the join code.")
		log.Info().Str("session_id", uri.SessionID).Msg("session view missing session")
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.sessions.ensureSessionID(c.Writer, c.Request)
	catalog := s.machine.Catalog()
	data := web.SessionPageData{
		SessionID: session.ID,
		JoinCode:  session.JoinCode,
		Name:      s.sessions.ClaimedName(s.sessions.SessionID(c.Request), session.ID),
	}
	for _, phase := range catalog.Phases {
		data.Phases = append(data.Phases, web.PhaseItem{ID: phase.ID, Label: phase.Label})
	}
	for _, entry := range catalog.Scale {
		data.Scale = append(data.Scale, web.ScaleItem{
			Value: float64(entry.Value),
			Label: entry.Label,
		})
	}
	templ.Handler(web.SessionPage(data)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) homeSummaries() []web.SessionSummary {
	summaries := make([]web.SessionSummary, 0)
	for _, session := range s.store.ListSummaries() {
		summaries = append(summaries, web.SessionSummary{
			ID:           session.ID,
			JoinCode:     session.JoinCode,
			Participants: session.Participants,
			Revealed:     session.Revealed,
		})
	}
	return summaries
}
