package authclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authclient/internal/wire"
)

// TokenRefresher exchanges a refresh token for a new pair. Implementations
// hold no session state; the pipeline owns when and how often it is called.
// An empty RefreshToken in the result keeps the current refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// TokenRefresherFunc adapts a function to [TokenRefresher].
type TokenRefresherFunc func(ctx context.Context, refreshToken string) (TokenPair, error)

func (f TokenRefresherFunc) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return f(ctx, refreshToken)
}

// httpRefresher posts to the refresh endpoint with the raw HTTP client. It
// never goes through the pipeline, so a 401 here cannot trigger a refresh.
type httpRefresher struct {
	client *Client
}

func (r httpRefresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, authError(ErrTokenInvalid, 0, ErrNotAuthenticated)
	}

	reply, err := r.client.send(ctx, http.MethodPost, r.client.config.Endpoints.Refresh, wire.RefreshBody{RefreshToken: refreshToken}, "")
	if err != nil {
		return TokenPair{}, err
	}

	switch {
	case reply.OK():
	case reply.Status == http.StatusUnauthorized, reply.Status == http.StatusForbidden, reply.Status == http.StatusBadRequest:
		return TokenPair{}, authError(ErrTokenInvalid, reply.Status, nil)
	default:
		return TokenPair{}, statusError(reply.Status, reply.Body, ErrTokenInvalid)
	}

	tokens, err := wire.DecodeTokens(reply.Body)
	if err != nil {
		return TokenPair{}, authError(ErrTokenInvalid, reply.Status, err)
	}
	return TokenPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}
