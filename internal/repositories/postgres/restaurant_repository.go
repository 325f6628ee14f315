package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type RestaurantRepository struct {
	pool *pgxpool.Pool
}

func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

const insertRestaurant = `
    INSERT INTO restaurants (
        id, name, phone, town, location, cuisines, manager_id,
        ghost_kitchen_enabled, ghost_kitchen
    ) VALUES (
        $1, $2, $3, $4,
        ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography,
        $7, $8, $9, $10
    )
    ON CONFLICT (id) DO UPDATE SET
        name = EXCLUDED.name,
        phone = EXCLUDED.phone,
        town = EXCLUDED.town,
        location = EXCLUDED.location,
        cuisines = EXCLUDED.cuisines,
        manager_id = EXCLUDED.manager_id,
        ghost_kitchen_enabled = EXCLUDED.ghost_kitchen_enabled,
        ghost_kitchen = EXCLUDED.ghost_kitchen
`

const selectRestaurant = `
    SELECT
        id, name, phone, town,
        ST_X(location::geometry) as longitude, ST_Y(location::geometry) as latitude,
        cuisines, manager_id, ghost_kitchen_enabled, ghost_kitchen
    FROM restaurants
`

func restaurantArgs(restaurant *models.Restaurant) ([]any, error) {
	settings, err := json.Marshal(restaurant.GhostKitchen)
	if err != nil {
		return nil, fmt.Errorf("encode ghost kitchen settings: %w", err)
	}
	return []any{
		restaurant.ID,
		restaurant.Name,
		restaurant.Phone,
		restaurant.Town,
		restaurant.Location.Lon,
		restaurant.Location.Lat,
		restaurant.Cuisines,
		restaurant.ManagerID,
		restaurant.GhostKitchenEnabled,
		settings,
	}, nil
}

func (r *RestaurantRepository) BulkCreate(ctx context.Context, restaurants []*models.Restaurant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, restaurant := range restaurants {
		args, err := restaurantArgs(restaurant)
		if err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, insertRestaurant, args...); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *RestaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	args, err := restaurantArgs(restaurant)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertRestaurant, args...)
	return err
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	restaurant, err := scanRestaurant(r.pool.QueryRow(ctx, selectRestaurant+" WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "restaurant "+id)
	}
	return restaurant, nil
}

func (r *RestaurantRepository) GetAll(ctx context.Context) (map[string]*models.Restaurant, error) {
	rows, err := r.pool.Query(ctx, selectRestaurant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	restaurants := make(map[string]*models.Restaurant)
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants[restaurant.ID] = restaurant
	}
	return restaurants, rows.Err()
}

func scanRestaurant(row pgx.Row) (*models.Restaurant, error) {
	var lon, lat *float64
	var phone, town, managerID *string
	var settings []byte
	restaurant := &models.Restaurant{}
	err := row.Scan(
		&restaurant.ID,
		&restaurant.Name,
		&phone,
		&town,
		&lon,
		&lat,
		&restaurant.Cuisines,
		&managerID,
		&restaurant.GhostKitchenEnabled,
		&settings,
	)
	if err != nil {
		return nil, err
	}
	if lon != nil && lat != nil {
		restaurant.Location = models.Location{Lon: *lon, Lat: *lat}
	}
	restaurant.Phone = deref(phone)
	restaurant.Town = deref(town)
	restaurant.ManagerID = deref(managerID)
	if err := json.Unmarshal(settings, &restaurant.GhostKitchen); err != nil {
		return nil, fmt.Errorf("decode ghost kitchen settings: %w", err)
	}
	return restaurant, nil
}

func (r *RestaurantRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM restaurants").Scan(&count)
	return count, err
}

func (r *RestaurantRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "TRUNCATE TABLE restaurants CASCADE")
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
