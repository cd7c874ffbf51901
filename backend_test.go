package authclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/session"
)

// seenRequest is what the fake backend recorded for one call.
type seenRequest struct {
	Method    string
	Path      string
	Auth      string
	Body      string
	RequestID string
	Custom    string
}

// fakeBackend imitates the platform REST API. Access tokens are accepted
// while present in valid; refresh tokens rotate on every refresh.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	gen     int
	valid   map[string]bool
	refresh map[string]bool
	seen    []seenRequest

	// refreshGate, when set, blocks refresh handlers until closed.
	refreshGate   chan struct{}
	refreshStatus int
	omitRotation  bool
	logoutStatus  int
	issueAccess   func(gen int) string

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	forgotBodies []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		t:       t,
		valid:   map[string]bool{},
		refresh: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/register", b.handleRegister)
	mux.HandleFunc("POST /api/auth/refresh-token", b.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", b.handleLogout)
	mux.HandleFunc("GET /api/auth/me", b.handleMe)
	mux.HandleFunc("POST /api/auth/forgot-password", b.handleForgot)
	mux.HandleFunc("GET /api/auth/reset-password/{token}", b.handleValidateReset)
	mux.HandleFunc("POST /api/auth/reset-password", b.handleReset)
	mux.HandleFunc("/api/", b.handleResource)

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) URL() string { return b.srv.URL }

// configure mutates behaviour flags under the backend lock.
func (b *fakeBackend) configure(fn func(*fakeBackend)) {
	b.mu.Lock()
	fn(b)
	b.mu.Unlock()
}

func (b *fakeBackend) record(r *http.Request) string {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.seen = append(b.seen, seenRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Auth:      r.Header.Get("Authorization"),
		Body:      string(body),
		RequestID: r.Header.Get("X-Request-ID"),
		Custom:    r.Header.Get("X-Course"),
	})
	b.mu.Unlock()
	return string(body)
}

func (b *fakeBackend) requestsTo(path string) []seenRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []seenRequest
	for _, s := range b.seen {
		if s.Path == path {
			out = append(out, s)
		}
	}
	return out
}

// issue mints the next pair and registers it as valid.
func (b *fakeBackend) issue() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	access := fmt.Sprintf("T%d", b.gen)
	if b.issueAccess != nil {
		access = b.issueAccess(b.gen)
	}
	refresh := fmt.Sprintf("R%d", b.gen)
	b.valid[access] = true
	b.refresh[refresh] = true
	return access, refresh
}

// expire makes the backend reject access.
func (b *fakeBackend) expire(access string) {
	b.mu.Lock()
	delete(b.valid, access)
	b.mu.Unlock()
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid[token]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	_ = json.Unmarshal([]byte(b.record(r)), &body)
	switch {
	case body.Email == "blocked@x.com":
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Account suspended by admin"})
	case body.Password != "pw":
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "User not found"})
	default:
		access, refresh := b.issue()
		writeJSON(w, http.StatusOK, map[string]string{"token": access, "refreshToken": refresh})
	}
}

func (b *fakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.Unmarshal([]byte(b.record(r)), &body)
	if body["email"] == "taken@x.com" {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered", "field": "email"})
		return
	}
	access, refresh := b.issue()
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"token": access, "refreshToken": refresh}})
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.Unmarshal([]byte(b.record(r)), &body)

	b.mu.Lock()
	gate := b.refreshGate
	status := b.refreshStatus
	omit := b.omitRotation
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "Refresh token expired"})
		return
	}

	b.mu.Lock()
	known := b.refresh[body.RefreshToken]
	if known && !omit {
		delete(b.refresh, body.RefreshToken)
	}
	b.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
		return
	}

	access, refresh := b.issue()
	if omit {
		writeJSON(w, http.StatusOK, map[string]string{"token": access})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": access, "refreshToken": refresh})
}

func (b *fakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.logoutCalls.Add(1)
	b.record(r)
	b.mu.Lock()
	status := b.logoutStatus
	b.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "logout failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{
		"id": "u1", "email": "a@x.com", "name": "Ada", "role": "student",
	}})
}

func (b *fakeBackend) handleForgot(w http.ResponseWriter, r *http.Request) {
	body := b.record(r)
	b.mu.Lock()
	b.forgotBodies = append(b.forgotBodies, body)
	b.mu.Unlock()
	if strings.Contains(body, "exists@x.com") {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Reset email sent"})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
}

func (b *fakeBackend) handleValidateReset(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	if r.PathValue("token") == "good-token" {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid or expired token"})
}

func (b *fakeBackend) handleReset(w http.ResponseWriter, r *http.Request) {
	var body struct{ Token string }
	_ = json.Unmarshal([]byte(b.record(r)), &body)
	if body.Token != "good-token" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid or expired token", "field": "token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
}

// handleResource serves protected CRUD paths. /api/always401 rejects every
// token; /api/invalid returns a field error; /api/boom a server error.
func (b *fakeBackend) handleResource(w http.ResponseWriter, r *http.Request) {
	body := b.record(r)
	if r.URL.Path == "/api/always401" || !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
		return
	}
	switch r.URL.Path {
	case "/api/invalid":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Course title is required", "field": "title"})
	case "/api/boom":
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "stack trace here"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
			"body":   body,
			"auth":   r.Header.Get("Authorization"),
		})
	}
}

type clientOption func(*Config, *Builder)

func newTestClient(t *testing.T, b *fakeBackend, opts ...clientOption) (*Client, *session.MemoryStore) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = b.URL()
	cfg.Refresh.Timeout = 5 * time.Second
	cfg.Metrics.Enabled = true

	store := session.NewMemoryStore()
	builder := New()
	for _, opt := range opts {
		opt(&cfg, builder)
	}
	c, err := builder.WithConfig(cfg).WithSessionStore(store).Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, store
}
