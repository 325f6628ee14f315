package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type ShiftRepository struct {
	mu     sync.RWMutex
	shifts map[string]*models.Shift
}

func NewShiftRepository() *ShiftRepository {
	return &ShiftRepository{shifts: make(map[string]*models.Shift)}
}

func (r *ShiftRepository) Create(_ context.Context, shift *models.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts[shift.ID] = cloneShift(shift)
	return nil
}

func (r *ShiftRepository) Update(_ context.Context, shift *models.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shifts[shift.ID]; !ok {
		return fmt.Errorf("shift %s: %w", shift.ID, models.ErrNotFound)
	}
	r.shifts[shift.ID] = cloneShift(shift)
	return nil
}

func (r *ShiftRepository) GetByID(_ context.Context, id string) (*models.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shift %s: %w", id, models.ErrNotFound)
	}
	return cloneShift(s), nil
}

func (r *ShiftRepository) ListByRestaurant(_ context.Context, restaurantID string, from, to time.Time) ([]*models.Shift, error) {
	return r.list(func(s *models.Shift) bool {
		return s.RestaurantID == restaurantID && s.Overlaps(from, to)
	}), nil
}

func (r *ShiftRepository) ListByWorker(_ context.Context, workerID string, from, to time.Time) ([]*models.Shift, error) {
	return r.list(func(s *models.Shift) bool {
		return s.WorkerID == workerID && s.Overlaps(from, to)
	}), nil
}

func (r *ShiftRepository) list(match func(*models.Shift) bool) []*models.Shift {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var shifts []*models.Shift
	for _, s := range r.shifts {
		if match(s) {
			shifts = append(shifts, cloneShift(s))
		}
	}
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].Start.Equal(shifts[j].Start) {
			return shifts[i].ID < shifts[j].ID
		}
		return shifts[i].Start.Before(shifts[j].Start)
	})
	return shifts
}

func cloneShift(s *models.Shift) *models.Shift {
	c := *s
	c.StatusHistory = append([]models.ShiftStatusChange(nil), s.StatusHistory...)
	return &c
}
