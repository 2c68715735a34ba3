package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// In-memory store implementations for development mode and tests. Production
// uses the Redis token store and the Mongo user store.

type MemoryTokens struct {
	mu     sync.RWMutex
	expiry map[string]time.Time
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{expiry: make(map[string]time.Time)}
}

func (s *MemoryTokens) Activate(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiry[tokenID] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryTokens) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiry, tokenID)
	return nil
}

func (s *MemoryTokens) IsActive(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.expiry[tokenID]
	return ok && time.Now().Before(exp), nil
}

var ErrUserNotFound = errors.New("user not found")

type MemoryUsers struct {
	mu    sync.RWMutex
	users map[int64]User
}

func NewMemoryUsers(seed ...User) *MemoryUsers {
	s := &MemoryUsers{users: make(map[int64]User)}
	for _, u := range seed {
		s.users[u.ID] = u
	}
	return s
}

func (s *MemoryUsers) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryUsers) Get(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := u
	return &out, nil
}
