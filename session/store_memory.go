package session

import (
	"context"
	"sync"
)

// MemoryStore holds the session in process memory. It does not survive restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	sess Session
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, accessToken, refreshToken string) error {
	if err := validatePair(accessToken, refreshToken); err != nil {
		return err
	}
	s.mu.Lock()
	s.sess = Session{AccessToken: accessToken, RefreshToken: refreshToken}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(context.Context) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.sess = Session{}
	s.mu.Unlock()
	return nil
}
