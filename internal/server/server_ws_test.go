package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialSession(t *testing.T, wsURL string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var snapshot map[string]any
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	if snapshot["type"] != "snapshot" {
		t.Fatalf("expected snapshot message, got %v", snapshot["type"])
	}
	return snapshot
}

// waitForSnapshot reads until match accepts a snapshot.
func waitForSnapshot(t *testing.T, conn *websocket.Conn, timeout time.Duration, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snapshot := readSnapshot(t, conn, time.Until(deadline))
		if match(snapshot) {
			return snapshot
		}
	}
	t.Fatalf("no matching snapshot within %s", timeout)
	return nil
}

func expectNoWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no websocket message, got %s", string(payload))
	}
}

func TestWebsocketUnknownSession(t *testing.T) {
	_, ts := newTestApp(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to unknown session to fail")
	}
	if resp != nil && resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestWebsocketBroadcastsVisibility(t *testing.T) {
	srv, ts := newTestApp(t)
	sessionID, _ := createSession(t, ts)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + sessionID

	admin := newBrowser(t)
	admin.unlockAdmin(t, ts, sessionID)

	observer := dialSession(t, wsURL, nil)
	adminConn := dialSession(t, wsURL+"?"+adminTokenQuery+"="+admin.adminToken, nil)

	initial := readSnapshot(t, observer, 5*time.Second)
	if initial["session_id"] != sessionID {
		t.Fatalf("expected snapshot for %s, got %v", sessionID, initial["session_id"])
	}
	if viewerOf(t, initial)["admin"] != false {
		t.Fatalf("expected anonymous observer")
	}
	if viewerOf(t, readSnapshot(t, adminConn, 5*time.Second))["admin"] != true {
		t.Fatalf("expected admin subscriber")
	}

	ada := newBrowser(t)
	ada.join(t, ts, sessionID, "Ada")
	expectStatus(t, ada.vote(t, ts, sessionID, "complexite-devs", 13), http.StatusOK)

	voted := func(snapshot map[string]any) bool {
		phase := phaseOf(t, snapshot, "complexite-devs")
		voters, _ := phase["voters"].([]any)
		return len(voters) == 1
	}
	seen := waitForSnapshot(t, observer, 5*time.Second, voted)
	if _, ok := phaseOf(t, seen, "complexite-devs")["votes"]; ok {
		t.Fatalf("expected observer not to see vote values before reveal")
	}
	adminSeen := waitForSnapshot(t, adminConn, 5*time.Second, voted)
	votes, _ := phaseOf(t, adminSeen, "complexite-devs")["votes"].(map[string]any)
	if votes["Ada"] != float64(13) {
		t.Fatalf("expected admin to see Ada's vote, got %#v", votes)
	}

	if count := srv.ws.Count(sessionID); count != 2 {
		t.Fatalf("expected 2 subscribers, got %d", count)
	}
}

func TestWebsocketSubscriberConvergesDuringVotes(t *testing.T) {
	_, ts := newTestApp(t)
	sessionID, _ := createSession(t, ts)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + sessionID

	admin := newBrowser(t)
	admin.unlockAdmin(t, ts, sessionID)
	ada := newBrowser(t)
	ada.join(t, ts, sessionID, "Ada")

	values := []float64{1, 2, 3, 5, 8, 13}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, value := range values {
			data, _ := json.Marshal(map[string]any{"phase": "deploiement", "value": value})
			resp, err := ada.client.Post(ts.URL+"/api/sessions/"+sessionID+"/votes", "application/json", bytes.NewReader(data))
			if err == nil {
				_ = resp.Body.Close()
			}
		}
	}()
	conn := dialSession(t, wsURL+"?"+adminTokenQuery+"="+admin.adminToken, nil)
	<-done

	last := values[len(values)-1]
	waitForSnapshot(t, conn, 5*time.Second, func(snapshot map[string]any) bool {
		votes, _ := phaseOf(t, snapshot, "deploiement")["votes"].(map[string]any)
		return votes["Ada"] == last
	})
}

func TestWebsocketRoomsAreIsolated(t *testing.T) {
	_, ts := newTestApp(t)
	first, _ := createSession(t, ts)
	second, _ := createSession(t, ts)
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/"

	conn := dialSession(t, base+first, nil)
	readSnapshot(t, conn, 5*time.Second)

	newBrowser(t).join(t, ts, second, "Bob")
	expectNoWSMessage(t, conn, 300*time.Millisecond)
}

func TestWebsocketViewerFollowsBrowserCookie(t *testing.T) {
	_, ts := newTestApp(t)
	sessionID, _ := createSession(t, ts)

	ada := newBrowser(t)
	ada.join(t, ts, sessionID, "Ada")

	header := http.Header{}
	for _, cookie := range ada.client.Jar.Cookies(mustParseURL(t, ts.URL)) {
		header.Add("Cookie", cookie.String())
	}
	conn := dialSession(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/sessions/"+sessionID, header)
	viewer := viewerOf(t, readSnapshot(t, conn, 5*time.Second))
	if viewer["name"] != "Ada" || viewer["validated"] != true {
		t.Fatalf("expected Ada's socket to be validated, got %#v", viewer)
	}
}
