package server

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"planning-poker/internal/config"
	"planning-poker/internal/estimation"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notifier tells other instances that a room changed.
type Notifier interface {
	Publish(sessionID, eventType string) error
}

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	cfg      config.Config
	sessions *sessionStore
	admins   *adminTokens
	machine  *estimation.Machine
	clock    clockwork.Clock
	notifier Notifier
}

type Option func(*Server)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

func WithCatalog(catalog estimation.Catalog) Option {
	return func(s *Server) {
		s.machine = estimation.NewMachine(catalog)
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Server) {
		s.notifier = notifier
	}
}

func New(conn *gorm.DB, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		store:    NewStore(),
		db:       conn,
		ws:       newWSHub(defaultWSConfig()),
		cfg:      cfg,
		sessions: newSessionStore(conn),
		machine:  estimation.NewMachine(estimation.DefaultCatalog()),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.admins = newAdminTokens(s.clock, cfg.AdminTokenTTL)
	s.ensureDefaultSession()
	return s
}

func (s *Server) ensureDefaultSession() {
	id := s.cfg.DefaultSession
	if id == "" {
		return
	}
	if s.db != nil {
		if _, err := s.restoreSession(id); err == nil {
			return
		} else if !errors.Is(err, errSessionNotFound) {
			log.Error().Err(err).Str("session_id", id).Msg("failed to restore default session")
		}
	}
	session := s.store.EnsureSession(id, s.clock.Now().UTC())
	s.recordCreated(session)
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/", s.handleHome)
	router.GET("/sessions/:sessionID", s.handleSessionView)
	router.GET("/health", s.handleHealth)

	api := router.Group("/api/sessions")
	api.POST("", s.handleCreateSession)
	api.GET("/:sessionID", s.handleGetSession)
	api.GET("/:sessionID/catalog", s.handleCatalog)
	api.GET("/:sessionID/events", s.handleEvents)
	api.POST("/:sessionID/join", s.handleJoin)
	api.POST("/:sessionID/admin", s.handleAdminLogin)
	api.POST("/:sessionID/votes", s.handleVote)
	api.POST("/:sessionID/finish", s.handleFinish)
	api.POST("/:sessionID/reveal", s.handleReveal)
	api.POST("/:sessionID/reset/phase", s.handleResetPhase)
	api.POST("/:sessionID/reset/votes", s.handleResetVotes)
	api.POST("/:sessionID/reset/all", s.handleResetAll)
	api.POST("/:sessionID/admin-estimates", s.handleAdminEstimate)

	router.GET("/ws/sessions/:sessionID", s.handleWebsocket)

	// Credentials only for an explicit origin list.
	allowCredentials := !slices.Contains(s.cfg.CORSAllowedOrigins, "*")
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", adminTokenHeader},
		AllowCredentials: allowCredentials,
	}).Handler(router)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
