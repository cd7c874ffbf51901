package authclient

import (
	"context"
	"sync"
)

// ResetState is a UI-observable state of a password reset opened from a link.
type ResetState uint8

const (
	ResetValidatingToken ResetState = iota
	ResetTokenInvalid
	ResetIdle
	ResetSubmitting
	ResetSuccess
	ResetError
)

func (s ResetState) String() string {
	switch s {
	case ResetValidatingToken:
		return "validating_token"
	case ResetTokenInvalid:
		return "token_invalid"
	case ResetIdle:
		return "idle"
	case ResetSubmitting:
		return "submitting"
	case ResetSuccess:
		return "success"
	case ResetError:
		return "error"
	}
	return "unknown"
}

var resetTransitions = map[ResetState][]ResetState{
	ResetValidatingToken: {ResetIdle, ResetTokenInvalid},
	ResetIdle:            {ResetSubmitting},
	ResetSubmitting:      {ResetSuccess, ResetError},
	ResetError:           {ResetSubmitting},
}

func canTransition(from, to ResetState) bool {
	for _, s := range resetTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ResetPasswordFlow drives one reset link through validation and submission.
// TokenInvalid and Success are terminal; from TokenInvalid only
// RequestNewLink is offered.
type ResetPasswordFlow struct {
	client *Client
	token  string

	mu      sync.Mutex
	state   ResetState
	lastErr error
}

// NewResetPasswordFlow starts in ResetValidatingToken.
func (c *Client) NewResetPasswordFlow(token string) *ResetPasswordFlow {
	return &ResetPasswordFlow{client: c, token: token, state: ResetValidatingToken}
}

func (f *ResetPasswordFlow) State() ResetState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error that moved the flow to ResetError, if any.
func (f *ResetPasswordFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *ResetPasswordFlow) transition(to ResetState) error {
	if !canTransition(f.state, to) {
		return ErrInvalidTransition
	}
	f.state = to
	return nil
}

// Validate checks the token. Network and server failures leave the flow in
// ResetValidatingToken so it can be retried.
func (f *ResetPasswordFlow) Validate(ctx context.Context) (ResetState, error) {
	f.mu.Lock()
	if f.state != ResetValidatingToken {
		state := f.state
		f.mu.Unlock()
		return state, ErrInvalidTransition
	}
	f.mu.Unlock()

	status, err := f.client.ValidateResetToken(ctx, f.token)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return f.state, err
	}
	next := ResetTokenInvalid
	if status.Valid {
		next = ResetIdle
	}
	if err := f.transition(next); err != nil {
		return f.state, err
	}
	return f.state, nil
}

// Submit sends the new password. It is accepted from ResetIdle and
// ResetError; a second Submit while one is running is rejected.
func (f *ResetPasswordFlow) Submit(ctx context.Context, newPassword, confirmPassword string) error {
	f.mu.Lock()
	if err := f.transition(ResetSubmitting); err != nil {
		f.mu.Unlock()
		return err
	}
	f.lastErr = nil
	f.mu.Unlock()

	err := f.client.ResetPassword(ctx, f.token, newPassword, confirmPassword)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.lastErr = err
		f.state = ResetError
		return err
	}
	f.state = ResetSuccess
	return nil
}

// RequestNewLink is the only action offered for an invalid token.
func (f *ResetPasswordFlow) RequestNewLink(ctx context.Context, email string) (ResetRequestResult, error) {
	if f.State() != ResetTokenInvalid {
		return ResetRequestResult{}, ErrInvalidTransition
	}
	return f.client.RequestPasswordReset(ctx, email)
}
