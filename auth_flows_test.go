package authclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

const strongPassword = "Str0ng!Passw0rd"

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantKind error
		wantCall bool
	}{
		{name: "bad password", email: "a@x.com", password: "nope", wantKind: ErrInvalidCredentials, wantCall: true},
		{name: "suspended", email: "blocked@x.com", password: "pw", wantKind: ErrAccessDenied, wantCall: true},
		{name: "empty email", email: " ", password: "pw", wantKind: ErrValidation},
		{name: "malformed email", email: "not-an-email", password: "pw", wantKind: ErrValidation},
		{name: "empty password", email: "a@x.com", password: "", wantKind: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(t)
			c, _ := newTestClient(t, b)
			ctx := context.Background()

			err := c.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %v, got %v", tt.wantKind, err)
			}
			if got := len(b.requestsTo("/api/auth/login")) > 0; got != tt.wantCall {
				t.Fatalf("network call = %v, want %v", got, tt.wantCall)
			}
			if c.IsAuthenticated(ctx) {
				t.Fatal("failed login must not store a session")
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "User not found") {
				t.Fatal("login failure must not echo the backend message")
			}
		})
	}
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
	}
	if got := c.Session(ctx); got.AccessToken != "T2" || got.RefreshToken != "R2" {
		t.Fatalf("session = %+v, want T2/R2", got)
	}
	if got := c.Metrics().Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login metric = %d", got)
	}
}

func TestRegister(t *testing.T) {
	t.Run("opens session", func(t *testing.T) {
		b := newFakeBackend(t)
		c, _ := newTestClient(t, b)
		ctx := context.Background()

		err := c.Register(ctx, RegisterRequest{
			Name:     "Ada",
			Email:    "a@x.com",
			Password: strongPassword,
			Role:     "student",
			Extra:    map[string]any{"institution": "MIT"},
		})
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if got := c.Session(ctx); got.AccessToken != "T1" || got.RefreshToken != "R1" {
			t.Fatalf("session = %+v", got)
		}
		calls := b.requestsTo("/api/auth/register")
		if len(calls) != 1 || !strings.Contains(calls[0].Body, `"institution":"MIT"`) {
			t.Fatalf("unexpected register body: %+v", calls)
		}
	})

	t.Run("field error from backend", func(t *testing.T) {
		b := newFakeBackend(t)
		c, _ := newTestClient(t, b)

		err := c.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "taken@x.com", Password: strongPassword})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if apiErr.Field != "email" || apiErr.Message != "Email already registered" {
			t.Fatalf("unexpected field error %+v", apiErr)
		}
	})

	t.Run("weak password rejected locally", func(t *testing.T) {
		b := newFakeBackend(t)
		c, _ := newTestClient(t, b)

		err := c.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "a@x.com", Password: "short"})
		if !errors.Is(err, ErrPasswordPolicy) || !errors.Is(err, ErrValidation) {
			t.Fatalf("expected password policy error, got %v", err)
		}
		if len(b.requestsTo("/api/auth/register")) != 0 {
			t.Fatal("weak password must not reach the backend")
		}
	})
}

func TestLogoutClearsEvenWhenRevokeFails(t *testing.T) {
	b := newFakeBackend(t)
	b.configure(func(b *fakeBackend) { b.logoutStatus = http.StatusInternalServerError })
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout must succeed locally, got %v", err)
	}
	if c.IsAuthenticated(ctx) {
		t.Fatal("logout must clear the session")
	}

	calls := b.requestsTo("/api/auth/logout")
	if len(calls) != 1 || calls[0].Auth != "Bearer T1" || !strings.Contains(calls[0].Body, "R1") {
		t.Fatalf("unexpected revoke call: %+v", calls)
	}
	if got := c.Metrics().Value(MetricLogoutRevokeFailure); got != 1 {
		t.Fatalf("revoke failure metric = %d", got)
	}

	// After logout the pipeline has nothing to attach and nothing to refresh.
	if _, err := c.Get(ctx, "/api/courses"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token invalid after logout, got %v", err)
	}
	if b.refreshCalls.Load() != 0 {
		t.Fatal("no refresh after logout")
	}
}

func TestRequestPasswordResetDoesNotRevealAccounts(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	known, err := c.RequestPasswordReset(ctx, "exists@x.com")
	if err != nil {
		t.Fatalf("known email: %v", err)
	}
	unknown, err := c.RequestPasswordReset(ctx, "nobody@x.com")
	if err != nil {
		t.Fatalf("unknown email: %v", err)
	}
	if known != unknown {
		t.Fatalf("results differ: %+v vs %+v", known, unknown)
	}
	if known.Message != DefaultConfig().PasswordReset.GenericMessage {
		t.Fatalf("unexpected message %q", known.Message)
	}
	if len(b.requestsTo("/api/auth/forgot-password")) != 2 {
		t.Fatal("expected both requests to reach the backend")
	}

	if _, err := c.RequestPasswordReset(ctx, "bad"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateResetToken(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	tests := []struct {
		token string
		want  bool
	}{
		{token: "good-token", want: true},
		{token: "expired-token", want: false},
		{token: "", want: false},
	}
	for _, tt := range tests {
		status, err := c.ValidateResetToken(ctx, tt.token)
		if err != nil {
			t.Fatalf("%q: %v", tt.token, err)
		}
		if status.Valid != tt.want {
			t.Fatalf("%q: valid = %v, want %v", tt.token, status.Valid, tt.want)
		}
	}
	if got := len(b.requestsTo("/api/auth/reset-password/good-token")); got != 1 {
		t.Fatalf("validate calls = %d", got)
	}
}

func TestResetPassword(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	err := c.ResetPassword(ctx, "good-token", strongPassword, strongPassword+"x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if apiErr.Field != "confirmPassword" {
		t.Fatalf("field = %q", apiErr.Field)
	}
	if err := c.ResetPassword(ctx, "good-token", "aaaaaaaa", "aaaaaaaa"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected policy error, got %v", err)
	}
	if len(b.requestsTo("/api/auth/reset-password")) != 0 {
		t.Fatal("local rejections must not reach the backend")
	}

	if err := c.ResetPassword(ctx, "good-token", strongPassword, strongPassword); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if err := c.ResetPassword(ctx, "used-token", strongPassword, strongPassword); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for rejected token, got %v", err)
	}
	if c.IsAuthenticated(ctx) {
		t.Fatal("reset must not open a session")
	}
}

func TestHandleOAuthCallback(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	access, refresh := b.issue()
	profile, err := c.HandleOAuthCallback(ctx, OAuthCallback{Token: access, RefreshToken: refresh})
	if err != nil {
		t.Fatalf("oauth failed: %v", err)
	}
	if profile.Email != "a@x.com" || profile.Name != "Ada" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if got := c.Session(ctx); got.AccessToken != access || got.RefreshToken != refresh {
		t.Fatalf("session = %+v", got)
	}
	if calls := b.requestsTo("/api/auth/me"); len(calls) != 1 || calls[0].Auth != "Bearer "+access {
		t.Fatalf("unexpected profile call: %+v", calls)
	}
}

func TestHandleOAuthLoginFailureClearsSession(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()
	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	_, err := c.HandleOAuthLogin(ctx, "forged")
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if c.IsAuthenticated(ctx) {
		t.Fatal("failed oauth must clear the session")
	}
}

func TestParseOAuthCallback(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    OAuthCallback
		wantErr bool
	}{
		{name: "full url", raw: "https://app.example.com/oauth/callback?token=abc&refreshToken=def", want: OAuthCallback{Token: "abc", RefreshToken: "def"}},
		{name: "path", raw: "/oauth/callback?token=abc", want: OAuthCallback{Token: "abc"}},
		{name: "query", raw: "?token=abc", want: OAuthCallback{Token: "abc"}},
		{name: "bare query", raw: "token=a%2Bb", want: OAuthCallback{Token: "a+b"}},
		{name: "missing token", raw: "https://app.example.com/oauth/callback?error=denied", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOAuthCallback(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCurrentUser(t *testing.T) {
	b := newFakeBackend(t)
	c, _ := newTestClient(t, b)
	ctx := context.Background()

	if _, err := c.CurrentUser(ctx); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token invalid before login, got %v", err)
	}
	if len(b.requestsTo("/api/auth/me")) != 0 {
		t.Fatal("no profile call without a session")
	}

	if err := c.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b.expire("T1")
	profile, err := c.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if profile.ID != "u1" || profile.Role != "student" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if b.refreshCalls.Load() != 1 {
		t.Fatal("profile fetch goes through the refreshing pipeline")
	}
}
