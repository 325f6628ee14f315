package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const insertOrder = `
    INSERT INTO ghost_kitchen_orders (
        id, session_id, restaurant_id, platform, status, total_amount,
        received_at, prep_started_at, ready_at, picked_up_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const selectOrder = `
    SELECT
        id, session_id, restaurant_id, platform, status, total_amount,
        received_at, prep_started_at, ready_at, picked_up_at
    FROM ghost_kitchen_orders
`

func orderArgs(o *models.Order) []any {
	return []any{
		o.ID,
		o.SessionID,
		o.RestaurantID,
		o.Platform,
		o.Status,
		o.TotalAmount,
		o.ReceivedAt,
		o.PrepStartedAt,
		o.ReadyAt,
		o.PickedUpAt,
	}
}

func (r *OrderRepository) BulkCreate(ctx context.Context, orders []*models.Order) error {
	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(insertOrder, orderArgs(o)...)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	_, err := r.pool.Exec(ctx, insertOrder, orderArgs(order)...)
	return err
}

func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	query := `
        UPDATE ghost_kitchen_orders SET
            status = $2, total_amount = $3, prep_started_at = $4, ready_at = $5, picked_up_at = $6
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, query,
		order.ID,
		order.Status,
		order.TotalAmount,
		order.PrepStartedAt,
		order.ReadyAt,
		order.PickedUpAt,
	)
	if err != nil {
		return err
	}
	return checkAffected(tag, "order "+order.ID)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+" WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "order "+id)
	}
	return order, nil
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Order, error) {
	return r.ListBySessions(ctx, []string{sessionID})
}

func (r *OrderRepository) ListBySessions(ctx context.Context, sessionIDs []string) ([]*models.Order, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectOrder+" WHERE session_id = ANY($1) ORDER BY received_at, id", sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(
		&o.ID,
		&o.SessionID,
		&o.RestaurantID,
		&o.Platform,
		&o.Status,
		&o.TotalAmount,
		&o.ReceivedAt,
		&o.PrepStartedAt,
		&o.ReadyAt,
		&o.PickedUpAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}
