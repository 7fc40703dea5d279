package server

import (
	"net/http"
	"strings"
	"sync"

	"planning-poker/internal/db"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionStore tracks browser sessions: a flash message and the name each
// browser claimed per room. Both live in the database when one is
// configured and in memory otherwise.
type sessionStore struct {
	db     *gorm.DB
	mu     sync.Mutex
	flash  map[string]string
	claims map[claimKey]string
}

type claimKey struct {
	browser string
	room    string
}

func newSessionStore(conn *gorm.DB) *sessionStore {
	return &sessionStore{
		db:     conn,
		flash:  make(map[string]string),
		claims: make(map[claimKey]string),
	}
}

func (s *sessionStore) SetFlash(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		return
	}
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		s.flash[id] = message
		s.mu.Unlock()
		return
	}
	record := db.BrowserSession{
		ID:    id,
		Flash: message,
	}
	if err := s.db.Save(&record).Error; err != nil {
		log.Error().Err(err).Str("browser_session", id).Msg("failed to save flash")
	}
}

func (s *sessionStore) PopFlash(w http.ResponseWriter, r *http.Request) string {
	id := s.ensureSessionID(w, r)
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		message := s.flash[id]
		delete(s.flash, id)
		return message
	}
	var record db.BrowserSession
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		return ""
	}
	if record.Flash == "" {
		return ""
	}
	message := record.Flash
	if err := s.db.Model(&db.BrowserSession{}).Where("id = ?", id).Update("flash", "").Error; err != nil {
		log.Error().Err(err).Str("browser_session", id).Msg("failed to clear flash")
	}
	return message
}

// Claim records that browser joined room under name. A name belongs to one
// browser per room, so any other browser holding it loses its claim.
func (s *sessionStore) Claim(browser, room, name string) {
	if browser == "" || strings.TrimSpace(name) == "" {
		return
	}
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for key, claimed := range s.claims {
			if key.room == room && claimed == name && key.browser != browser {
				delete(s.claims, key)
			}
		}
		s.claims[claimKey{browser: browser, room: room}] = name
		return
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&db.BrowserSession{ID: browser}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_slug = ? AND name = ? AND browser_session_id <> ?", room, name, browser).
			Delete(&db.NameClaim{}).Error; err != nil {
			return err
		}
		claim := db.NameClaim{
			BrowserSessionID: browser,
			SessionSlug:      room,
			Name:             name,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "browser_session_id"}, {Name: "session_slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(&claim).Error
	})
	if err != nil {
		log.Error().Err(err).Str("browser_session", browser).Str("session_id", room).Msg("failed to persist name claim")
	}
}

// ClaimedName returns the name browser joined room with, if any. With a
// database the claim is read from it so claims moved by other instances
// are seen.
func (s *sessionStore) ClaimedName(browser, room string) string {
	if browser == "" {
		return ""
	}
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.claims[claimKey{browser: browser, room: room}]
	}
	var record db.NameClaim
	if err := s.db.Where("browser_session_id = ? AND session_slug = ?", browser, room).First(&record).Error; err != nil {
		return ""
	}
	return record.Name
}

// SessionID returns the browser session id carried by the request cookie.
func (s *sessionStore) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *sessionStore) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if id := s.SessionID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	return id
}
