// Package session persists search sessions: their criteria, status and the
// offers aggregated so far.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dharmasatrya/fareengine/internal/models"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

type Store interface {
	Create(ctx context.Context, s models.SearchSession) error
	Get(ctx context.Context, id string) (*models.SearchSession, error)
	Update(ctx context.Context, id string, patch models.SessionPatch) (*models.SearchSession, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// MemoryStore keeps sessions in process. Returned sessions are copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SearchSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.SearchSession)}
}

func (m *MemoryStore) Create(_ context.Context, s models.SearchSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return ErrExists
	}
	c := copySession(&s)
	m.sessions[s.ID] = c
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.SearchSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, patch models.SessionPatch) (*models.SearchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyPatch(s, patch)
	return copySession(s), nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func applyPatch(s *models.SearchSession, patch models.SessionPatch) {
	if len(patch.AppendOffers) > 0 {
		s.Offers = append(s.Offers, models.CloneOffers(patch.AppendOffers)...)
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
}

func copySession(s *models.SearchSession) *models.SearchSession {
	c := *s
	c.Offers = models.CloneOffers(s.Offers)
	if s.Criteria.ReturnDate != nil {
		r := *s.Criteria.ReturnDate
		c.Criteria.ReturnDate = &r
	}
	return &c
}
