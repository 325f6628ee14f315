package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type WorkerRepository struct {
	mu      sync.RWMutex
	workers map[string]*models.WorkerProfile
}

func NewWorkerRepository() *WorkerRepository {
	return &WorkerRepository{workers: make(map[string]*models.WorkerProfile)}
}

func (r *WorkerRepository) BulkCreate(ctx context.Context, workers []*models.WorkerProfile) error {
	for _, w := range workers {
		if err := r.Create(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (r *WorkerRepository) Create(_ context.Context, worker *models.WorkerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[worker.ID] = cloneWorker(worker)
	return nil
}

func (r *WorkerRepository) GetByID(_ context.Context, id string) (*models.WorkerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	if !ok {
		return nil, fmt.Errorf("worker %s: %w", id, models.ErrNotFound)
	}
	return cloneWorker(w), nil
}

func (r *WorkerRepository) ListByRestaurant(_ context.Context, restaurantID string) ([]*models.WorkerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var workers []*models.WorkerProfile
	for _, w := range r.workers {
		if w.RestaurantID == restaurantID {
			workers = append(workers, cloneWorker(w))
		}
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}

func cloneWorker(w *models.WorkerProfile) *models.WorkerProfile {
	c := *w
	c.Positions = append([]models.Position(nil), w.Positions...)
	c.Availability = append([]models.AvailabilityWindow(nil), w.Availability...)
	return &c
}

type TimeOffRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.TimeOff
}

func NewTimeOffRepository() *TimeOffRepository {
	return &TimeOffRepository{entries: make(map[string]*models.TimeOff)}
}

func (r *TimeOffRepository) Create(_ context.Context, timeOff *models.TimeOff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *timeOff
	r.entries[timeOff.ID] = &c
	return nil
}

func (r *TimeOffRepository) ListByWorker(_ context.Context, workerID string, from, to time.Time) ([]*models.TimeOff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []*models.TimeOff
	for _, t := range r.entries {
		if t.WorkerID == workerID && t.Start.Before(to) && from.Before(t.End) {
			c := *t
			entries = append(entries, &c)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Start.Before(entries[j].Start) })
	return entries, nil
}
