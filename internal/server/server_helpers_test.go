package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
)

// testBrowser is one participant: its own cookie jar and, once unlocked, an
// admin token.
type testBrowser struct {
	client     *http.Client
	adminToken string
}

func newBrowser(t *testing.T) *testBrowser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testBrowser{client: &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *testBrowser) do(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.adminToken != "" {
		req.Header.Set(adminTokenHeader, b.adminToken)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	return newBrowser(t).do(t, ts, method, path, payload)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func assertString(t *testing.T, value any) {
	t.Helper()
	if _, ok := value.(string); !ok {
		t.Fatalf("expected string, got %T", value)
	}
}

func createSession(t *testing.T, ts *httptest.Server) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", nil)
	expectStatus(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	return body["session_id"].(string), body["join_code"].(string)
}

func (b *testBrowser) join(t *testing.T, ts *httptest.Server, sessionID, name string) map[string]any {
	t.Helper()
	resp := b.do(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/join", map[string]string{"name": name})
	expectStatus(t, resp, http.StatusOK)
	return decodeBody(t, resp)
}

func (b *testBrowser) unlockAdmin(t *testing.T, ts *httptest.Server, sessionID string) {
	t.Helper()
	resp := b.do(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/admin", map[string]string{"password": testAdminPassword})
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	token, ok := body["admin_token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected admin token, got %#v", body["admin_token"])
	}
	b.adminToken = token
}

func (b *testBrowser) vote(t *testing.T, ts *httptest.Server, sessionID, phase string, value float64) *http.Response {
	t.Helper()
	return b.do(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/votes", map[string]any{"phase": phase, "value": value})
}

func (b *testBrowser) snapshot(t *testing.T, ts *httptest.Server, sessionID string) map[string]any {
	t.Helper()
	resp := b.do(t, ts, http.MethodGet, "/api/sessions/"+sessionID, nil)
	expectStatus(t, resp, http.StatusOK)
	return decodeBody(t, resp)
}

func sessionOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	session, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("expected session object, got %#v", body["session"])
	}
	return session
}

func viewerOf(t *testing.T, snapshot map[string]any) map[string]any {
	t.Helper()
	viewer, ok := snapshot["viewer"].(map[string]any)
	if !ok {
		t.Fatalf("expected viewer object, got %#v", snapshot["viewer"])
	}
	return viewer
}

func phaseOf(t *testing.T, snapshot map[string]any, id string) map[string]any {
	t.Helper()
	phases, _ := snapshot["phases"].([]any)
	for _, raw := range phases {
		phase := raw.(map[string]any)
		if phase["id"] == id {
			return phase
		}
	}
	t.Fatalf("phase %q not found in snapshot", id)
	return nil
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return parsed
}
