package repositories

import (
	"context"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type RestaurantRepository interface {
	BulkCreate(ctx context.Context, restaurants []*models.Restaurant) error
	Create(ctx context.Context, restaurant *models.Restaurant) error
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	GetAll(ctx context.Context) (map[string]*models.Restaurant, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

type SessionRepository interface {
	// Create fails with models.ErrInvalidState when the restaurant already has an open session.
	Create(ctx context.Context, session *models.Session) error
	// Update fails with models.ErrInvalidState once the stored session is ENDED.
	Update(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// GetOpen returns the ACTIVE or PAUSED session of a restaurant, or models.ErrNotFound.
	GetOpen(ctx context.Context, restaurantID string) (*models.Session, error)
	ListOpen(ctx context.Context) ([]*models.Session, error)
	// ListEnded returns ENDED sessions whose start falls in [from, to), oldest first.
	ListEnded(ctx context.Context, restaurantID string, from, to time.Time) ([]*models.Session, error)
}

type OrderRepository interface {
	BulkCreate(ctx context.Context, orders []*models.Order) error
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.Order, error)
	ListBySessions(ctx context.Context, sessionIDs []string) ([]*models.Order, error)
}

type ShiftRepository interface {
	Create(ctx context.Context, shift *models.Shift) error
	Update(ctx context.Context, shift *models.Shift) error
	GetByID(ctx context.Context, id string) (*models.Shift, error)
	// ListByRestaurant returns shifts overlapping [from, to).
	ListByRestaurant(ctx context.Context, restaurantID string, from, to time.Time) ([]*models.Shift, error)
	// ListByWorker returns the worker's shifts overlapping [from, to).
	ListByWorker(ctx context.Context, workerID string, from, to time.Time) ([]*models.Shift, error)
}

type WorkerRepository interface {
	BulkCreate(ctx context.Context, workers []*models.WorkerProfile) error
	Create(ctx context.Context, worker *models.WorkerProfile) error
	GetByID(ctx context.Context, id string) (*models.WorkerProfile, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]*models.WorkerProfile, error)
}

type TimeOffRepository interface {
	Create(ctx context.Context, timeOff *models.TimeOff) error
	// ListByWorker returns time-off entries overlapping [from, to) in any status.
	ListByWorker(ctx context.Context, workerID string, from, to time.Time) ([]*models.TimeOff, error)
}

type ForecastRepository interface {
	// Save inserts or replaces the record for its restaurant, date and hour.
	Save(ctx context.Context, record *models.ForecastRecord) error
	// RecordActual fills the observed counts, or returns models.ErrNotFound when nothing was stored.
	RecordActual(ctx context.Context, restaurantID string, date time.Time, hour, dineIn, delivery int) error
	// ListSince returns records dated on or after since.
	ListSince(ctx context.Context, restaurantID string, since time.Time) ([]*models.ForecastRecord, error)
}

// Repositories bundles every store the services depend on.
type Repositories struct {
	Restaurants RestaurantRepository
	Sessions    SessionRepository
	Orders      OrderRepository
	Shifts      ShiftRepository
	Workers     WorkerRepository
	TimeOff     TimeOffRepository
	Forecasts   ForecastRepository
}

// DayKey normalizes a date to its calendar day for forecast records.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
