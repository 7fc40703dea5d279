// Package relay fans change notices out to other server instances over NATS so
// each can reload the affected room from the shared database.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Notice says that a room changed on the instance named by Origin.
type Notice struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Origin    string    `json:"origin"`
	At        time.Time `json:"at"`
}

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "poker.sessions",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Relay publishes and receives notices. A nil *Relay is valid and does
// nothing, which is what callers get when no NATS URL is configured.
type Relay struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	prefix string
	origin string
	clock  clockwork.Clock
}

func Connect(cfg Config, clock clockwork.Clock) (*Relay, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}
	opts := []nats.Option{
		nats.Name("planning-poker"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	r := newRelay(cfg.SubjectPrefix, clock)
	r.nc = nc
	log.Info().Str("url", nc.ConnectedUrl()).Str("origin", r.origin).Msg("relay connected")
	return r, nil
}

func newRelay(prefix string, clock clockwork.Clock) *Relay {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultConfig().SubjectPrefix
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		prefix: prefix,
		origin: uuid.NewString(),
		clock:  clock,
	}
}

func (r *Relay) Origin() string {
	if r == nil {
		return ""
	}
	return r.origin
}

// Subject returns the subject notices for sessionID are published on.
func (r *Relay) Subject(sessionID string) string {
	return r.prefix + "." + sanitizeToken(sessionID)
}

func (r *Relay) Publish(sessionID, eventType string) error {
	if r == nil || r.nc == nil {
		return nil
	}
	data, err := json.Marshal(Notice{
		SessionID: sessionID,
		Type:      eventType,
		Origin:    r.origin,
		At:        r.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	if err := r.nc.Publish(r.Subject(sessionID), data); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

// Subscribe delivers notices from other instances to handle.
func (r *Relay) Subscribe(handle func(sessionID, eventType string)) error {
	if r == nil || r.nc == nil {
		return nil
	}
	sub, err := r.nc.Subscribe(r.prefix+".>", func(msg *nats.Msg) {
		notice, ok := r.accept(msg.Data)
		if !ok {
			return
		}
		handle(notice.SessionID, notice.Type)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.prefix, err)
	}
	r.sub = sub
	return nil
}

// accept decodes a notice and drops the ones this instance published.
func (r *Relay) accept(data []byte) (Notice, bool) {
	var notice Notice
	if err := json.Unmarshal(data, &notice); err != nil {
		log.Warn().Err(err).Msg("dropping malformed relay notice")
		return Notice{}, false
	}
	if notice.SessionID == "" || notice.Origin == r.origin {
		return Notice{}, false
	}
	return notice, true
}

func (r *Relay) Close() {
	if r == nil || r.nc == nil {
		return
	}
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	if err := r.nc.Drain(); err != nil {
		r.nc.Close()
	}
}

// sanitizeToken keeps a session id usable as a single subject token.
func sanitizeToken(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, value)
}
