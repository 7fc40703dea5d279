package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"planning-poker/internal/estimation"
)

func TestAdminTokensExpire(t *testing.T) {
	clock := newFakeClock()
	tokens := newAdminTokens(clock, 30*time.Minute)

	token, expiresAt := tokens.Issue("main")
	if !expiresAt.Equal(clock.Now().Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}
	if !tokens.Valid(token, "main") {
		t.Fatalf("expected fresh token valid")
	}
	if tokens.Valid(token, "session-1") {
		t.Fatalf("expected token scoped to its room")
	}
	if tokens.Valid("", "main") || tokens.Valid("nope", "main") {
		t.Fatalf("expected unknown tokens rejected")
	}

	clock.Advance(29 * time.Minute)
	if !tokens.Valid(token, "main") {
		t.Fatalf("expected token valid before expiry")
	}
	clock.Advance(time.Minute)
	if tokens.Valid(token, "main") {
		t.Fatalf("expected token expired")
	}
}

func TestAdminTokensPruneOnIssue(t *testing.T) {
	clock := newFakeClock()
	tokens := newAdminTokens(clock, time.Minute)
	tokens.Issue("main")
	clock.Advance(2 * time.Minute)
	tokens.Issue("main")

	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	if len(tokens.grants) != 1 {
		t.Fatalf("expected expired grant pruned, got %d grants", len(tokens.grants))
	}
}

func TestCheckAdminPassword(t *testing.T) {
	srv := New(nil, testConfig())
	if err := srv.checkAdminPassword(testAdminPassword); err != nil {
		t.Fatalf("expected password accepted, got %v", err)
	}
	if err := srv.checkAdminPassword("S3CRET"); !errors.Is(err, estimation.ErrAdminDenied) {
		t.Fatalf("expected denied, got %v", err)
	}

	cfg := testConfig()
	cfg.AdminPassword = ""
	open := New(nil, cfg)
	if err := open.checkAdminPassword(""); !errors.Is(err, estimation.ErrAdminDenied) {
		t.Fatalf("expected admin disabled without a password, got %v", err)
	}
}

func TestAdminTokenExpiresOverHTTP(t *testing.T) {
	clock := newFakeClock()
	_, ts := newTestApp(t, WithClock(clock))
	sessionID, _ := createSession(t, ts)

	admin := newBrowser(t)
	admin.unlockAdmin(t, ts, sessionID)
	expectStatus(t, admin.do(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/reveal", nil), http.StatusOK)

	clock.Advance(testConfig().AdminTokenTTL)
	expectStatus(t, admin.do(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/reset/votes", nil), http.StatusForbidden)
}

func TestAdminTokenFromQuery(t *testing.T) {
	_, ts := newTestApp(t)
	sessionID, _ := createSession(t, ts)

	admin := newBrowser(t)
	admin.unlockAdmin(t, ts, sessionID)
	token := admin.adminToken

	plain := newBrowser(t)
	resp := plain.do(t, ts, http.MethodGet, "/api/sessions/"+sessionID+"?"+adminTokenQuery+"="+token, nil)
	expectStatus(t, resp, http.StatusOK)
	if viewer := viewerOf(t, decodeBody(t, resp)); viewer["admin"] != true {
		t.Fatalf("expected query token to grant admin view, got %#v", viewer)
	}
}
