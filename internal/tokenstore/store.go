package tokenstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the slot holds no token.
var ErrNotFound = errors.New("token not found")

// Store is the single durable slot holding the current credential token.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type memoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemory builds a process-local store. Tokens do not survive restarts.
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Get(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotFound
	}
	return s.token, nil
}

func (s *memoryStore) Set(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return errors.New("token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
