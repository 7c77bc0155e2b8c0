package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore provides in-memory principal storage with O(1) username
// lookups. Thread-safe using sync.RWMutex for concurrent access.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*Principal
	byUsername map[string]uuid.UUID
}

// NewMemoryStore creates a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[uuid.UUID]*Principal),
		byUsername: make(map[string]uuid.UUID),
	}
}

// Create stores a new principal.
func (s *MemoryStore) Create(ctx context.Context, p *Principal) error {
	if p == nil {
		return errors.New("principal cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Username)
	if _, exists := s.byUsername[key]; exists {
		return ErrAlreadyExists
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	// Store a copy to avoid external mutations
	cp := *p
	s.byID[p.ID] = &cp
	s.byUsername[key] = p.ID
	return nil
}

// FindByUsername retrieves a principal by username.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *s.byID[id]
	return &cp, nil
}

// RecordLogin marks a successful-login timestamp. Last write wins when two
// near-simultaneous logins race.
func (s *MemoryStore) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	t := at
	p.LastLoginAt = &t
	p.UpdatedAt = time.Now()
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *MemoryStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("password hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	p.PasswordHash = passwordHash
	p.UpdatedAt = time.Now()
	return nil
}

// SetActive flips the account's active flag.
func (s *MemoryStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	p.Active = active
	p.UpdatedAt = time.Now()
	return nil
}
