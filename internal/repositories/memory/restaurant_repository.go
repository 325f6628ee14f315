package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type RestaurantRepository struct {
	mu          sync.RWMutex
	restaurants map[string]*models.Restaurant
}

func NewRestaurantRepository() *RestaurantRepository {
	return &RestaurantRepository{restaurants: make(map[string]*models.Restaurant)}
}

func (r *RestaurantRepository) BulkCreate(ctx context.Context, restaurants []*models.Restaurant) error {
	for _, restaurant := range restaurants {
		if err := r.Create(ctx, restaurant); err != nil {
			return err
		}
	}
	return nil
}

func (r *RestaurantRepository) Create(_ context.Context, restaurant *models.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restaurants[restaurant.ID] = cloneRestaurant(restaurant)
	return nil
}

func (r *RestaurantRepository) GetByID(_ context.Context, id string) (*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	restaurant, ok := r.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("restaurant %s: %w", id, models.ErrNotFound)
	}
	return cloneRestaurant(restaurant), nil
}

func (r *RestaurantRepository) GetAll(_ context.Context) (map[string]*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string]*models.Restaurant, len(r.restaurants))
	for id, restaurant := range r.restaurants {
		all[id] = cloneRestaurant(restaurant)
	}
	return all, nil
}

func (r *RestaurantRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.restaurants), nil
}

func (r *RestaurantRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restaurants = make(map[string]*models.Restaurant)
	return nil
}

func cloneRestaurant(r *models.Restaurant) *models.Restaurant {
	c := *r
	c.Cuisines = append([]string(nil), r.Cuisines...)
	c.GhostKitchen.Platforms = append([]models.Platform(nil), r.GhostKitchen.Platforms...)
	if r.GhostKitchen.PlatformFees != nil {
		c.GhostKitchen.PlatformFees = make(map[models.Platform]models.PlatformFee, len(r.GhostKitchen.PlatformFees))
		for p, fee := range r.GhostKitchen.PlatformFees {
			c.GhostKitchen.PlatformFees[p] = fee
		}
	}
	return &c
}
