package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"planning-poker/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

const testAdminPassword = "s3cret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AdminPassword = testAdminPassword
	cfg.AdminTokenTTL = time.Hour
	return cfg
}

func newTestApp(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, testConfig(), opts...)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func newFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
}
