package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*models.Session)}
}

func (r *SessionRepository) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.Status.IsOpen() {
		for _, s := range r.sessions {
			if s.RestaurantID == session.RestaurantID && s.Status.IsOpen() {
				return fmt.Errorf("restaurant %s already has open session %s: %w", session.RestaurantID, s.ID, models.ErrInvalidState)
			}
		}
	}
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *SessionRepository) Update(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, models.ErrNotFound)
	}
	if stored.Status == models.SessionStatusEnded {
		return fmt.Errorf("session %s already ended: %w", session.ID, models.ErrInvalidState)
	}
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return s.Clone(), nil
}

func (r *SessionRepository) GetOpen(_ context.Context, restaurantID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.RestaurantID == restaurantID && s.Status.IsOpen() {
			return s.Clone(), nil
		}
	}
	return nil, fmt.Errorf("open session for restaurant %s: %w", restaurantID, models.ErrNotFound)
}

func (r *SessionRepository) ListOpen(_ context.Context) ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var open []*models.Session
	for _, s := range r.sessions {
		if s.Status.IsOpen() {
			open = append(open, s.Clone())
		}
	}
	sortByStart(open)
	return open, nil
}

func (r *SessionRepository) ListEnded(_ context.Context, restaurantID string, from, to time.Time) ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ended []*models.Session
	for _, s := range r.sessions {
		if s.RestaurantID != restaurantID || s.Status != models.SessionStatusEnded {
			continue
		}
		if s.StartedAt.Before(from) || !s.StartedAt.Before(to) {
			continue
		}
		ended = append(ended, s.Clone())
	}
	sortByStart(ended)
	return ended, nil
}

func sortByStart(sessions []*models.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
}
