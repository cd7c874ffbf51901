package authclient

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource exposes the session to oauth2-aware code such as
// oauth2.NewClient. Each Token call refreshes through the shared
// coordinator when the access token expires within the proactive window
// (or is already expired when it can be read), so it never starts a second
// refresh alongside the pipeline.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, client: c}
}

type sessionTokenSource struct {
	ctx    context.Context
	client *Client
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	c := s.client
	if c == nil || c.store == nil {
		return nil, ErrClientNotReady
	}

	sess := c.store.Load(s.ctx)
	if !sess.Complete() {
		return nil, authError(ErrTokenInvalid, 0, ErrNotAuthenticated)
	}

	if c.inspector != nil && c.inspector.ExpiresWithin(sess.AccessToken, c.config.Refresh.ProactiveWindow) {
		tokens, turn, err := c.refreshSession(s.ctx)
		turn.Done()
		if err != nil {
			return nil, err
		}
		sess.AccessToken, sess.RefreshToken = tokens.AccessToken, tokens.RefreshToken
	}

	tok := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.inspector != nil {
		if exp, err := c.inspector.ExpiresAt(sess.AccessToken); err == nil {
			tok.Expiry = exp
		}
	}
	return tok, nil
}
