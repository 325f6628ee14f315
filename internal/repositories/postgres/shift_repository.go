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

type ShiftRepository struct {
	pool *pgxpool.Pool
}

func NewShiftRepository(pool *pgxpool.Pool) *ShiftRepository {
	return &ShiftRepository{pool: pool}
}

const selectShift = `
    SELECT
        id, restaurant_id, worker_id, position, type, status,
        start_time, end_time, notes, status_history
    FROM shifts
`

func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	history, err := json.Marshal(shift.StatusHistory)
	if err != nil {
		return fmt.Errorf("encode status history: %w", err)
	}
	query := `
        INSERT INTO shifts (
            id, restaurant_id, worker_id, position, type, status,
            start_time, end_time, notes, status_history
        ) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
    `
	_, err = r.pool.Exec(ctx, query,
		shift.ID,
		shift.RestaurantID,
		shift.WorkerID,
		shift.Position,
		shift.Type,
		shift.Status,
		shift.Start,
		shift.End,
		shift.Notes,
		history,
	)
	return err
}

func (r *ShiftRepository) Update(ctx context.Context, shift *models.Shift) error {
	history, err := json.Marshal(shift.StatusHistory)
	if err != nil {
		return fmt.Errorf("encode status history: %w", err)
	}
	query := `
        UPDATE shifts SET
            worker_id = NULLIF($2, ''), status = $3, start_time = $4, end_time = $5,
            notes = $6, status_history = $7
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, query,
		shift.ID,
		shift.WorkerID,
		shift.Status,
		shift.Start,
		shift.End,
		shift.Notes,
		history,
	)
	if err != nil {
		return err
	}
	return checkAffected(tag, "shift "+shift.ID)
}

func (r *ShiftRepository) GetByID(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := scanShift(r.pool.QueryRow(ctx, selectShift+" WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "shift "+id)
	}
	return shift, nil
}

func (r *ShiftRepository) ListByRestaurant(ctx context.Context, restaurantID string, from, to time.Time) ([]*models.Shift, error) {
	return r.query(ctx, selectShift+`
        WHERE restaurant_id = $1 AND start_time < $3 AND end_time > $2
        ORDER BY start_time, id`, restaurantID, from, to)
}

func (r *ShiftRepository) ListByWorker(ctx context.Context, workerID string, from, to time.Time) ([]*models.Shift, error) {
	return r.query(ctx, selectShift+`
        WHERE worker_id = $1 AND start_time < $3 AND end_time > $2
        ORDER BY start_time, id`, workerID, from, to)
}

func (r *ShiftRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Shift, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*models.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

func scanShift(row pgx.Row) (*models.Shift, error) {
	var workerID, notes *string
	var history []byte
	s := &models.Shift{}
	err := row.Scan(
		&s.ID,
		&s.RestaurantID,
		&workerID,
		&s.Position,
		&s.Type,
		&s.Status,
		&s.Start,
		&s.End,
		&notes,
		&history,
	)
	if err != nil {
		return nil, err
	}
	s.WorkerID = deref(workerID)
	s.Notes = deref(notes)
	if err := json.Unmarshal(history, &s.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history: %w", err)
	}
	return s, nil
}
