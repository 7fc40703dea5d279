package server

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"planning-poker/internal/estimation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type adminGrant struct {
	room      string
	expiresAt time.Time
}

// adminTokens issues room-scoped admin capabilities that expire after ttl.
type adminTokens struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	ttl    time.Duration
	grants map[string]adminGrant
}

func newAdminTokens(clock clockwork.Clock, ttl time.Duration) *adminTokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &adminTokens{
		clock:  clock,
		ttl:    ttl,
		grants: make(map[string]adminGrant),
	}
}

func (a *adminTokens) Issue(room string) (string, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked()
	token := uuid.NewString()
	expiresAt := a.clock.Now().Add(a.ttl)
	a.grants[token] = adminGrant{room: room, expiresAt: expiresAt}
	return token, expiresAt
}

func (a *adminTokens) Valid(token, room string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	grant, ok := a.grants[token]
	if !ok {
		return false
	}
	if !a.clock.Now().Before(grant.expiresAt) {
		delete(a.grants, token)
		return false
	}
	return grant.room == room
}

func (a *adminTokens) pruneLocked() {
	now := a.clock.Now()
	for token, grant := range a.grants {
		if !now.Before(grant.expiresAt) {
			delete(a.grants, token)
		}
	}
}

func (s *Server) checkAdminPassword(password string) error {
	expected := s.cfg.AdminPassword
	if expected == "" || subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return estimation.ErrAdminDenied
	}
	return nil
}

func adminTokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(adminTokenHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query(adminTokenQuery))
}

// actorFor resolves who is acting on room for this request.
func (s *Server) actorFor(c *gin.Context, room string) estimation.Actor {
	return estimation.Actor{
		Name:  s.sessions.ClaimedName(s.sessions.SessionID(c.Request), room),
		Admin: s.admins.Valid(adminTokenFromRequest(c), room),
	}
}

func (s *Server) viewerFor(c *gin.Context, room string) estimation.Viewer {
	actor := s.actorFor(c, room)
	return estimation.Viewer{Name: actor.Name, Admin: actor.Admin}
}
