// Package auth provides the credential store read before every realtime
// connection attempt and every REST call.
//
// The realtime and REST layers only read credentials. Writing them
// (login, refresh, logout) belongs to the host.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenKey is the well-known key of the session access token.
const AccessTokenKey = "access_token"

// Errors
var (
	ErrNoCredential = errors.New("no stored credential")
	ErrExpired      = errors.New("stored credential expired")
	ErrInsecureFile = errors.New("credential file is readable by group or others")
)

// Store reads stored credentials by key.
type Store interface {
	// Get returns ErrNoCredential when nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)
}

// Token reads the credential stored under key and rejects JWTs whose exp
// claim is before now. Opaque (non-JWT) tokens are returned as is.
func Token(ctx context.Context, s Store, key string, now time.Time) (string, error) {
	token, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredential
	}

	exp, ok := expiry(token)
	if ok && !now.Before(exp) {
		return "", ErrExpired
	}
	return token, nil
}

// expiry extracts the exp claim without verifying the signature. The
// server verifies; the client only avoids dialing with a token that is
// certain to be refused.
func expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// -----------------------------------------------------------------------------
// File store
// -----------------------------------------------------------------------------

// FileStore reads a JSON object of key/value credentials from disk. The
// file is re-read on every Get so a logout that removes it is observed
// immediately.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get reads key from the credential file.
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("stat credential file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return "", ErrInsecureFile
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("parse credential file: %w", err)
	}

	v, ok := values[key]
	if !ok || v == "" {
		return "", ErrNoCredential
	}
	return v, nil
}

// -----------------------------------------------------------------------------
// Memory store
// -----------------------------------------------------------------------------

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNoCredential
	}
	return v, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// Delete removes key.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}
