package goSession

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zyraxfit/goSession/session"
)

// fakeZyrax serves the login, refresh and classes endpoints of the backend.
type fakeZyrax struct {
	mu           sync.Mutex
	valid        map[string]bool
	loginPaths   []string
	loginStatus  int
	loginBody    string
	refreshCode  int
	nextAccess   string
	refreshDelay time.Duration

	refreshCalls atomic.Int32
	classesCalls atomic.Int32
}

func newFakeZyrax(valid ...string) *fakeZyrax {
	f := &fakeZyrax{
		valid:       map[string]bool{},
		loginStatus: http.StatusOK,
		refreshCode: http.StatusOK,
		nextAccess:  "A2",
	}
	for _, v := range valid {
		f.valid[v] = true
	}
	return f
}

func (f *fakeZyrax) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "login/"):
		f.mu.Lock()
		f.loginPaths = append(f.loginPaths, r.URL.Path)
		status, body := f.loginStatus, f.loginBody
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))

	case r.Method == http.MethodPost && r.URL.Path == "/zyrax/refresh/":
		f.refreshCalls.Add(1)
		if f.refreshDelay > 0 {
			time.Sleep(f.refreshDelay)
		}
		if f.refreshCode != http.StatusOK {
			w.WriteHeader(f.refreshCode)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		f.mu.Lock()
		f.valid[f.nextAccess] = true
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"access": f.nextAccess})

	case r.URL.Path == "/zyrax/classes/":
		f.classesCalls.Add(1)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		ok := f.valid[token]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"Morning HIIT"}]`))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeZyrax) lastLoginPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loginPaths) == 0 {
		return ""
	}
	return f.loginPaths[len(f.loginPaths)-1]
}

type redirectRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *redirectRecorder) hook(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *redirectRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type engineFixture struct {
	engine    *Engine
	store     *session.MemoryStore
	backend   *fakeZyrax
	redirects *redirectRecorder
	audit     *ChannelSink
}

func newEngineFixture(t *testing.T, actor Actor, backend *fakeZyrax, mutate func(*Config)) *engineFixture {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := DefaultConfigFor(actor)
	cfg.BaseURL = srv.URL
	cfg.Refresh.Timeout = 2 * time.Second
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64
	if mutate != nil {
		mutate(&cfg)
	}

	fx := &engineFixture{
		store:     session.NewMemoryStore(),
		backend:   backend,
		redirects: &redirectRecorder{},
		audit:     NewChannelSink(64),
	}

	engine, err := New().
		WithConfig(cfg).
		WithStore(fx.store).
		WithAuditSink(fx.audit).
		OnRedirect(fx.redirects.hook).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	fx.engine = engine
	return fx
}

func (fx *engineFixture) seed(t *testing.T, pair session.TokenPair) {
	t.Helper()
	if err := fx.store.Set(context.Background(), pair); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func (fx *engineFixture) pair(t *testing.T) session.TokenPair {
	t.Helper()
	pair, err := fx.store.Get(context.Background())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	return pair
}

// waitAudit returns the next audit event of eventType, skipping others.
func (fx *engineFixture) waitAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-fx.audit.Events():
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
		}
	}
}

// unsignedToken builds a token whose payload carries the given claims.
func unsignedToken(claims map[string]any) string {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, _ := json.Marshal(claims)
	return fmt.Sprintf("%s.%s.%s", header, enc.EncodeToString(payload), enc.EncodeToString([]byte("sig")))
}

func tokenExpiringIn(d time.Duration) string {
	return unsignedToken(map[string]any{"exp": time.Now().Add(d).Unix(), "sub": "coach", "role": "admin"})
}
