package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the session in one file so it survives process restarts.
//
// Writes go to a temporary sibling file that is renamed over the target, so a
// concurrent or crashed writer never leaves a half-written pair behind.
type FileStore struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time

	// Warn, when set, is told about unreadable or corrupt files. Set it
	// before the store is shared.
	Warn WarnFunc
}

// NewFileStore creates a [FileStore] at path. The parent directory is created on
// first Save with mode 0700; the file itself is written with mode 0600.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  time.Now,
	}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(_ context.Context, accessToken, refreshToken string) error {
	if err := validatePair(accessToken, refreshToken); err != nil {
		return err
	}

	data, err := encodeRecord(newRecord(accessToken, refreshToken, s.now()))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		if removeErr := os.Remove(tmpName); removeErr != nil {
			return fmt.Errorf("%w: rename: %v; remove temp: %v", ErrStoreUnavailable, err, removeErr)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads the file. A missing or corrupt file reads as the empty session;
// anything but a missing file is reported to Warn.
func (s *FileStore) Load(context.Context) Session {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Warn.warn("session: read file", "path", s.path, "error", err)
		}
		return Session{}
	}

	rec, err := decodeRecord(data)
	if err != nil {
		s.Warn.warn("session: corrupt file", "path", s.path, "error", err)
		return Session{}
	}

	sess := Session{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}
	if !sess.Complete() {
		s.Warn.warn("session: incomplete record", "path", s.path)
		return Session{}
	}
	return sess
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
