package server

import (
	"net/http"
	"strings"

	"planning-poker/internal/estimation"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type sessionURI struct {
	SessionID string `uri:"sessionID" binding:"required"`
}

type joinRequest struct {
	Name string `json:"name" binding:"required,name"`
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type voteRequest struct {
	Phase string   `json:"phase" binding:"required,phase"`
	Value *float64 `json:"value" binding:"required"`
}

type resetPhaseRequest struct {
	Phase string `json:"phase" binding:"required,phase"`
}

var voteMessages = bindMessages{
	"Phase": {"required": "phase is required", "phase": "phase is invalid"},
	"Value": {"required": "value is required"},
}

// lookupSession resolves a room by id or join code, falling back to the
// database for rooms this process has not loaded yet.
func (s *Server) lookupSession(param string) (Session, bool) {
	param = strings.TrimSpace(param)
	if session, ok := s.store.Resolve(param); ok {
		return session, true
	}
	if s.db == nil {
		return Session{}, false
	}
	session, err := s.restoreSession(param)
	if err != nil {
		return Session{}, false
	}
	return session, true
}

func (s *Server) sessionFromRequest(c *gin.Context) (Session, bool) {
	var uri sessionURI
	if !bindURI(c, &uri) {
		return Session{}, false
	}
	session, ok := s.lookupSession(uri.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errSessionNotFound.Error()})
		return Session{}, false
	}
	return session, true
}

// applyAction runs action against the room while it is locked. With a
// database the action is checked against the stored rows and the per-key
// changes are written in the same transaction; if the database fails the
// action still applies in memory and persisted is false.
func (s *Server) applyAction(room string, actor estimation.Actor, action estimation.Action) (Session, bool, error) {
	persisted := true
	refreshed := false
	var changes estimation.Changes
	var actionErr error
	session, err := s.store.UpdateSession(room, func(session *Session) error {
		if s.db != nil {
			result, err := s.applyDurable(session, actor, action)
			if err == nil {
				refreshed = !estimation.Diff(session.State, result.current).Empty()
				if result.actionErr != nil {
					actionErr = result.actionErr
					session.State = result.current
					return nil
				}
				changes = result.changes
				session.State = result.next
				return nil
			}
			persisted = false
			log.Error().Err(err).
				Str("session_id", session.ID).
				Str("action", action.Type()).
				Msg("failed to persist session changes")
		}
		next, err := s.machine.Apply(session.State, actor, action)
		if err != nil {
			return err
		}
		changes = estimation.Diff(session.State, next)
		session.State = next
		return nil
	})
	if err != nil {
		return session, false, err
	}
	if actionErr != nil {
		if refreshed {
			s.broadcastSession(session.ID)
		}
		return session, false, actionErr
	}
	log.Info().
		Str("session_id", session.ID).
		Str("action", action.Type()).
		Str("actor", actor.Name).
		Bool("admin", actor.Admin).
		Msg("session updated")
	if !changes.Empty() || refreshed {
		s.broadcastSession(session.ID)
	}
	if !changes.Empty() && persisted && s.notifier != nil {
		if err := s.notifier.Publish(session.ID, action.Type()); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to publish change notice")
		}
	}
	return session, persisted, nil
}

func (s *Server) respondAction(c *gin.Context, room string, actor estimation.Actor, action estimation.Action) {
	session, persisted, err := s.applyAction(room, actor, action)
	if err != nil {
		writeError(c, err)
		return
	}
	viewer := estimation.Viewer{Name: actor.Name, Admin: actor.Admin}
	c.JSON(http.StatusOK, gin.H{
		"persisted": persisted,
		"session":   s.snapshot(session, viewer),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	session, err := s.createSession()
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		writeError(c, err)
		return
	}
	log.Info().Str("session_id", session.ID).Str("join_code", session.JoinCode).Msg("session created")
	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"join_code":  session.JoinCode,
	})
}

// recordCreated writes the room row and its creation event and keeps the
// assigned database id on the in-memory room.
func (s *Server) recordCreated(session Session) Session {
	if s.db == nil {
		return session
	}
	updated, err := s.store.UpdateSession(session.ID, func(session *Session) error {
		return s.persistCreated(session)
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist session")
		return session
	}
	return updated
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.snapshot(session, s.viewerFor(c, session.ID)))
}

func (s *Server) handleCatalog(c *gin.Context) {
	if _, ok := s.sessionFromRequest(c); !ok {
		return
	}
	c.JSON(http.StatusOK, s.machine.Catalog())
}

func (s *Server) handleJoin(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	var req joinRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {
			"required": "name is required",
			"name":     "name must be 1-32 letters, digits, spaces or - _ ' . @",
		},
	}, "invalid join request") {
		return
	}
	name := estimation.NormalizeName(req.Name)
	browser := s.sessions.ensureSessionID(c.Writer, c.Request)
	actor := s.actorFor(c, session.ID)
	action := estimation.Join{
		Name:    name,
		Reclaim: actor.Name == name,
	}
	updated, persisted, err := s.applyAction(session.ID, actor, action)
	if err != nil {
		writeError(c, err)
		return
	}
	s.sessions.Claim(browser, session.ID, name)
	log.Info().Str("session_id", session.ID).Str("participant", name).Msg("participant joined")
	// Re-broadcast so the joining browser sees itself validated.
	s.broadcastSession(session.ID)
	c.JSON(http.StatusOK, gin.H{
		"persisted": persisted,
		"session":   s.snapshot(updated, estimation.Viewer{Name: name, Admin: actor.Admin}),
	})
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	var req adminLoginRequest
	if !bindJSON(c, &req, bindMessages{
		"Password": {"required": "password is required"},
	}, "invalid admin request") {
		return
	}
	if len(req.Password) > maxPasswordLength {
		writeError(c, estimation.ErrAdminDenied)
		return
	}
	if err := s.checkAdminPassword(req.Password); err != nil {
		log.Warn().Str("session_id", session.ID).Str("remote", c.ClientIP()).Msg("admin authentication failed")
		writeError(c, err)
		return
	}
	token, expiresAt := s.admins.Issue(session.ID)
	log.Info().Str("session_id", session.ID).Time("expires_at", expiresAt).Msg("admin authenticated")
	viewer := s.viewerFor(c, session.ID)
	viewer.Admin = true
	c.JSON(http.StatusOK, gin.H{
		"admin_token": token,
		"expires_at":  expiresAt.UTC(),
		"session":     s.snapshot(session, viewer),
	})
}

func (s *Server) handleVote(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	var req voteRequest
	if !bindJSON(c, &req, voteMessages, "invalid vote request") {
		return
	}
	s.respondAction(c, session.ID, s.actorFor(c, session.ID), estimation.CastVote{
		Phase: req.Phase,
		Value: estimation.EstimateValue(*req.Value),
	})
}

func (s *Server) handleFinish(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	s.respondAction(c, session.ID, s.actorFor(c, session.ID), estimation.DeclareFinished{})
}

func (s *Server) handleReveal(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	s.respondAction(c, session.ID, s.actorFor(c, session.ID), estimation.Reveal{})
}

func (s *Server) handleResetPhase(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	actor := s.actorFor(c, session.ID)
	if !actor.Admin {
		writeError(c, estimation.ErrAdminRequired)
		return
	}
	var req resetPhaseRequest
	if !bindJSON(c, &req, voteMessages, "invalid reset request") {
		return
	}
	s.respondAction(c, session.ID, actor, estimation.ResetPhase{Phase: req.Phase})
}

func (s *Server) handleResetVotes(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	s.respondAction(c, session.ID, s.actorFor(c, session.ID), estimation.ResetVotes{})
}

func (s *Server) handleResetAll(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	s.respondAction(c, session.ID, s.actorFor(c, session.ID), estimation.ResetAll{})
}

func (s *Server) handleAdminEstimate(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	actor := s.actorFor(c, session.ID)
	if !actor.Admin {
		writeError(c, estimation.ErrAdminRequired)
		return
	}
	var req voteRequest
	if !bindJSON(c, &req, voteMessages, "invalid estimate request") {
		return
	}
	s.respondAction(c, session.ID, actor, estimation.ValidateEstimate{
		Phase: req.Phase,
		Value: estimation.EstimateValue(*req.Value),
	})
}

func (s *Server) handleEvents(c *gin.Context) {
	session, ok := s.sessionFromRequest(c)
	if !ok {
		return
	}
	if !s.admins.Valid(adminTokenFromRequest(c), session.ID) {
		writeError(c, estimation.ErrAdminRequired)
		return
	}
	if s.db == nil || session.DBID == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDatabase.Error()})
		return
	}
	page, perPage := parsePagination(c, 50, 200)
	events, total, err := s.listEvents(session.DBID, page, perPage)
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to list events")
		writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(events))
	for _, event := range events {
		items = append(items, gin.H{
			"id":         event.ID,
			"type":       event.Type,
			"actor":      event.Actor,
			"payload":    event.Payload,
			"created_at": eventTime(event),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"events":     items,
		"pagination": buildPagination(page, perPage, total),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
