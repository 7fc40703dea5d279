package server

import (
	"testing"

	"planning-poker/internal/db"
)

func TestClaimMovesNameBetweenBrowsers(t *testing.T) {
	for name, store := range map[string]*sessionStore{
		"memory":   newSessionStore(nil),
		"database": newSessionStore(newTestDB(t)),
	} {
		t.Run(name, func(t *testing.T) {
			store.Claim("browser-1", "room-a", "Ada")
			store.Claim("browser-1", "room-b", "Ada")
			if got := store.ClaimedName("browser-1", "room-a"); got != "Ada" {
				t.Fatalf("expected Ada claimed, got %q", got)
			}

			store.Claim("browser-2", "room-a", "Ada")
			if got := store.ClaimedName("browser-1", "room-a"); got != "" {
				t.Fatalf("expected first browser to lose the name, got %q", got)
			}
			if got := store.ClaimedName("browser-2", "room-a"); got != "Ada" {
				t.Fatalf("expected second browser to hold the name, got %q", got)
			}
			if got := store.ClaimedName("browser-1", "room-b"); got != "Ada" {
				t.Fatalf("expected other rooms untouched, got %q", got)
			}

			store.Claim("browser-2", "room-a", "Bob")
			if got := store.ClaimedName("browser-2", "room-a"); got != "Bob" {
				t.Fatalf("expected renamed claim, got %q", got)
			}
		})
	}
}

func TestClaimSeenAcrossInstances(t *testing.T) {
	conn := newTestDB(t)
	first := newSessionStore(conn)
	second := newSessionStore(conn)

	first.Claim("browser-1", "room-a", "Ada")
	second.Claim("browser-2", "room-a", "Ada")

	if got := first.ClaimedName("browser-1", "room-a"); got != "" {
		t.Fatalf("expected claim moved by another instance, got %q", got)
	}
	var count int64
	if err := conn.Model(&db.NameClaim{}).Where("session_slug = ? AND name = ?", "room-a", "Ada").Count(&count).Error; err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one claim row for the name, got %d", count)
	}
}
