package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type WorkerRepository struct {
	pool *pgxpool.Pool
}

func NewWorkerRepository(pool *pgxpool.Pool) *WorkerRepository {
	return &WorkerRepository{pool: pool}
}

const insertWorker = `
    INSERT INTO worker_profiles (
        id, restaurant_id, name, positions, hourly_rate, reliability_score, availability
    ) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const selectWorker = `
    SELECT id, restaurant_id, name, positions, hourly_rate, reliability_score, availability
    FROM worker_profiles
`

func workerArgs(w *models.WorkerProfile) ([]any, error) {
	availability, err := json.Marshal(w.Availability)
	if err != nil {
		return nil, fmt.Errorf("encode availability: %w", err)
	}
	positions := make([]string, len(w.Positions))
	for i, p := range w.Positions {
		positions[i] = string(p)
	}
	return []any{w.ID, w.RestaurantID, w.Name, positions, w.HourlyRate, w.ReliabilityScore, availability}, nil
}

func (r *WorkerRepository) BulkCreate(ctx context.Context, workers []*models.WorkerProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, w := range workers {
		args, err := workerArgs(w)
		if err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, insertWorker, args...); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *WorkerRepository) Create(ctx context.Context, worker *models.WorkerProfile) error {
	args, err := workerArgs(worker)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertWorker, args...)
	return err
}

func (r *WorkerRepository) GetByID(ctx context.Context, id string) (*models.WorkerProfile, error) {
	worker, err := scanWorker(r.pool.QueryRow(ctx, selectWorker+" WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "worker "+id)
	}
	return worker, nil
}

func (r *WorkerRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]*models.WorkerProfile, error) {
	rows, err := r.pool.Query(ctx, selectWorker+" WHERE restaurant_id = $1 ORDER BY id", restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []*models.WorkerProfile
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

func scanWorker(row pgx.Row) (*models.WorkerProfile, error) {
	var positions []string
	var availability []byte
	w := &models.WorkerProfile{}
	if err := row.Scan(&w.ID, &w.RestaurantID, &w.Name, &positions, &w.HourlyRate, &w.ReliabilityScore, &availability); err != nil {
		return nil, err
	}
	for _, p := range positions {
		w.Positions = append(w.Positions, models.Position(p))
	}
	if err := json.Unmarshal(availability, &w.Availability); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	return w, nil
}

type TimeOffRepository struct {
	pool *pgxpool.Pool
}

func NewTimeOffRepository(pool *pgxpool.Pool) *TimeOffRepository {
	return &TimeOffRepository{pool: pool}
}

func (r *TimeOffRepository) Create(ctx context.Context, t *models.TimeOff) error {
	query := `
        INSERT INTO time_off (id, worker_id, start_time, end_time, status, reason)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.pool.Exec(ctx, query, t.ID, t.WorkerID, t.Start, t.End, t.Status, t.Reason)
	return err
}

func (r *TimeOffRepository) ListByWorker(ctx context.Context, workerID string, from, to time.Time) ([]*models.TimeOff, error) {
	query := `
        SELECT id, worker_id, start_time, end_time, status, reason
        FROM time_off
        WHERE worker_id = $1 AND start_time < $3 AND end_time > $2
        ORDER BY start_time
    `
	rows, err := r.pool.Query(ctx, query, workerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.TimeOff
	for rows.Next() {
		var reason *string
		t := &models.TimeOff{}
		if err := rows.Scan(&t.ID, &t.WorkerID, &t.Start, &t.End, &t.Status, &reason); err != nil {
			return nil, err
		}
		t.Reason = deref(reason)
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
