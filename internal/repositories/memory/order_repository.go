package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*models.Order)}
}

func (r *OrderRepository) BulkCreate(ctx context.Context, orders []*models.Order) error {
	for _, order := range orders {
		if err := r.Create(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) Update(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return fmt.Errorf("order %s: %w", order.ID, models.ErrNotFound)
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Order, error) {
	return r.ListBySessions(ctx, []string{sessionID})
}

func (r *OrderRepository) ListBySessions(_ context.Context, sessionIDs []string) ([]*models.Order, error) {
	wanted := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var orders []*models.Order
	for _, o := range r.orders {
		if _, ok := wanted[o.SessionID]; ok {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].ReceivedAt.Equal(orders[j].ReceivedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].ReceivedAt.Before(orders[j].ReceivedAt)
	})
	return orders, nil
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.PrepStartedAt = cloneTime(o.PrepStartedAt)
	c.ReadyAt = cloneTime(o.ReadyAt)
	c.PickedUpAt = cloneTime(o.PickedUpAt)
	return &c
}
