package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"bulls-cows/internal/config"
	"bulls-cows/internal/db/dbtest"
	"bulls-cows/internal/rules"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const testJWTSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AuthJWTSecret = testJWTSecret
	cfg.RateLimitPerSecond = 0
	return cfg
}

// newTestEngine returns a server over a fresh sqlite database with a
// controllable clock. Seat 1 always moves first unless a test overrides it.
func newTestEngine(t *testing.T, cfg config.Config) (*Server, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Now().UTC()}
	srv := New(dbtest.Open(t), cfg)
	srv.clock = clock.Now
	srv.firstSeat = func() int { return rules.SeatOne }
	return srv, clock
}

func newTestEnv(t *testing.T) (*Server, *httptest.Server, *fakeClock) {
	t.Helper()
	srv, clock := newTestEngine(t, testConfig())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, clock
}

func tokenFor(t *testing.T, srv *Server, userID string) string {
	t.Helper()
	token, err := srv.tokens.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// Issue signs a token the way the identity provider does.
func (v *tokenVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (h *wsHub) Count(roomCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomCode])
}
