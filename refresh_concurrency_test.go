package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRefreshConcurrencySingleRefresh(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b.expire("T1")

	gate := make(chan struct{})
	b.configure(func(b *fakeBackend) { b.refreshGate = gate })

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	auths := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			resp, err := c.Get(ctx, "/api/courses")
			if err == nil {
				var echo struct{ Auth string }
				_ = resp.Decode(&echo)
				auths <- echo.Auth
			}
			results <- err
		}()
	}

	// Every request except the leader must be queued before the refresh
	// is allowed to answer.
	waitFor(t, "queued waiters", func() bool { return c.coordinator.Pending() == n-1 })
	close(gate)
	wg.Wait()
	close(results)
	close(auths)

	for err := range results {
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
	}
	for auth := range auths {
		if auth != "Bearer T2" {
			t.Fatalf("replay sent %q, want Bearer T2", auth)
		}
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := c.Session(ctx); got.AccessToken != "T2" || got.RefreshToken != "R2" {
		t.Fatalf("session = %+v, want T2/R2", got)
	}
	stats := c.RefreshStats()
	if stats.Refreshes != 1 || stats.Waiters != n-1 || stats.Succeeded != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := c.Metrics().Value(MetricRefreshWaiters); got != n-1 {
		t.Fatalf("waiter metric = %d, want %d", got, n-1)
	}
}

func TestRefreshConcurrencyFailureRejectsAll(t *testing.T) {
	b := newFakeBackend(t)
	sink := NewChannelSink(16)
	c, store := newTestClient(t, b, func(cfg *Config, bld *Builder) {
		cfg.Audit.Enabled = true
		bld.WithAuditSink(sink)
	})
	ctx := context.Background()

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b.expire("T1")
	gate := make(chan struct{})
	b.configure(func(b *fakeBackend) {
		b.refreshGate = gate
		b.refreshStatus = http.StatusUnauthorized
	})

	const n = 2
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := c.Get(ctx, "/api/courses")
			results <- err
		}()
	}
	waitFor(t, "queued waiter", func() bool { return c.coordinator.Pending() == n-1 })
	close(gate)
	wg.Wait()
	close(results)

	for err := range results {
		if !errors.Is(err, ErrTokenExpired) || !errors.Is(err, ErrAuthentication) {
			t.Fatalf("expected token expired, got %v", err)
		}
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := len(b.requestsTo("/api/courses")); got != n {
		t.Fatalf("resource calls = %d, want %d (no replay after failed refresh)", got, n)
	}
	if !store.Load(ctx).Empty() {
		t.Fatal("session must be cleared after refresh failure")
	}

	waitFor(t, "session_expired event", func() bool {
		for {
			select {
			case ev := <-sink.Events():
				if ev.Type == AuditEventSessionExpired {
					return true
				}
			default:
				return false
			}
		}
	})
}

func TestRefreshConcurrencyReplaysInQueueOrder(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b.expire("T1")
	gate := make(chan struct{})
	b.configure(func(b *fakeBackend) { b.refreshGate = gate })

	const waiters = 12
	paths := []string{"/api/lead"}
	for i := 0; i < waiters; i++ {
		paths = append(paths, fmt.Sprintf("/api/w%02d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(paths))
	send := func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(ctx, path)
			errs <- err
		}()
	}

	send(paths[0])
	waitFor(t, "leader refresh", func() bool { return b.refreshCalls.Load() == 1 })
	for i, path := range paths[1:] {
		send(path)
		waitFor(t, "queued "+path, func() bool { return c.coordinator.Pending() == i+1 })
	}
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
	}

	b.mu.Lock()
	var replayed []string
	for _, s := range b.seen {
		if s.Auth == "Bearer T2" {
			replayed = append(replayed, s.Path)
		}
	}
	b.mu.Unlock()

	if strings.Join(replayed, " ") != strings.Join(paths, " ") {
		t.Fatalf("replay order = %v, want %v", replayed, paths)
	}
}

func TestRefreshConcurrencyReplaysResolveIndependently(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b.expire("T1")
	gate := make(chan struct{})
	b.configure(func(b *fakeBackend) { b.refreshGate = gate })

	type outcome struct {
		path string
		resp *Response
		err  error
	}
	paths := []string{"/api/courses", "/api/boom", "/api/invalid", "/api/lessons"}
	results := make(chan outcome, len(paths))
	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Post(ctx, path, map[string]string{"title": ""})
			results <- outcome{path: path, resp: resp, err: err}
		}()
	}
	waitFor(t, "queued waiters", func() bool { return c.coordinator.Pending() == len(paths)-1 })
	close(gate)
	wg.Wait()
	close(results)

	for r := range results {
		switch r.path {
		case "/api/courses", "/api/lessons":
			if r.err != nil || r.resp.StatusCode != http.StatusOK {
				t.Fatalf("%s: expected success, got %v", r.path, r.err)
			}
		case "/api/boom":
			var apiErr *APIError
			if !errors.As(r.err, &apiErr) || !errors.Is(r.err, ErrServer) || apiErr.Status != http.StatusInternalServerError {
				t.Fatalf("%s: expected server error, got %v", r.path, r.err)
			}
			if IsAuthError(r.err) {
				t.Fatalf("%s: server error must not be an auth error", r.path)
			}
		case "/api/invalid":
			var apiErr *APIError
			if !errors.As(r.err, &apiErr) || !errors.Is(r.err, ErrValidation) || apiErr.Field != "title" {
				t.Fatalf("%s: expected validation error on title, got %v", r.path, r.err)
			}
		}
	}
	if got := b.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if !c.IsAuthenticated(ctx) {
		t.Fatal("failed replays must not clear the refreshed session")
	}
}

func TestRefreshStatsCountOutcomes(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b.expire("T1")
	if _, err := c.Get(ctx, "/api/courses"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	b.expire("T2")
	b.configure(func(b *fakeBackend) { b.refreshStatus = http.StatusUnauthorized })
	if _, err := c.Get(ctx, "/api/courses"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected token expired, got %v", err)
	}

	stats := c.RefreshStats()
	if stats.Refreshes != 2 || stats.Succeeded != 1 || stats.Failed != 1 || stats.Panicked != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
