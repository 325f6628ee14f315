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

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const selectSession = `
    SELECT
        id, restaurant_id, status, started_at, ended_at, paused_at, pause_end_time,
        pause_reason, scheduled_end_at, end_reason, config, total_orders, total_revenue,
        total_prep_time, avg_prep_time, peak_concurrent, peak_utilization, platform_stats
    FROM ghost_kitchen_sessions
`

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	config, stats, err := encodeSession(session)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO ghost_kitchen_sessions (
            id, restaurant_id, status, started_at, ended_at, paused_at, pause_end_time,
            pause_reason, scheduled_end_at, end_reason, config, total_orders, total_revenue,
            total_prep_time, avg_prep_time, peak_concurrent, peak_utilization, platform_stats
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
        )
    `
	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.RestaurantID,
		session.Status,
		session.StartedAt,
		session.EndedAt,
		session.PausedAt,
		session.PauseEndTime,
		session.PauseReason,
		session.ScheduledEndAt,
		session.EndReason,
		config,
		session.TotalOrders,
		session.TotalRevenue,
		session.TotalPrepTime,
		session.AvgPrepTime,
		session.PeakConcurrentOrders,
		session.PeakUtilization,
		stats,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("restaurant %s already has an open session: %w", session.RestaurantID, models.ErrInvalidState)
	}
	return err
}

func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	_, stats, err := encodeSession(session)
	if err != nil {
		return err
	}
	query := `
        UPDATE ghost_kitchen_sessions SET
            status = $2, ended_at = $3, paused_at = $4, pause_end_time = $5, pause_reason = $6,
            scheduled_end_at = $7, end_reason = $8, total_orders = $9, total_revenue = $10,
            total_prep_time = $11, avg_prep_time = $12, peak_concurrent = $13,
            peak_utilization = $14, platform_stats = $15
        WHERE id = $1 AND status <> 'ENDED'
    `
	tag, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Status,
		session.EndedAt,
		session.PausedAt,
		session.PauseEndTime,
		session.PauseReason,
		session.ScheduledEndAt,
		session.EndReason,
		session.TotalOrders,
		session.TotalRevenue,
		session.TotalPrepTime,
		session.AvgPrepTime,
		session.PeakConcurrentOrders,
		session.PeakUtilization,
		stats,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var status string
	err = r.pool.QueryRow(ctx, "SELECT status FROM ghost_kitchen_sessions WHERE id = $1", session.ID).Scan(&status)
	if err != nil {
		return notFound(err, "session "+session.ID)
	}
	return fmt.Errorf("session %s is %s: %w", session.ID, status, models.ErrInvalidState)
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	session, err := scanSession(r.pool.QueryRow(ctx, selectSession+" WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "session "+id)
	}
	return session, nil
}

func (r *SessionRepository) GetOpen(ctx context.Context, restaurantID string) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, selectSession+" WHERE restaurant_id = $1 AND status IN ('ACTIVE', 'PAUSED')", restaurantID)
	session, err := scanSession(row)
	if err != nil {
		return nil, notFound(err, "open session for restaurant "+restaurantID)
	}
	return session, nil
}

func (r *SessionRepository) ListOpen(ctx context.Context) ([]*models.Session, error) {
	return r.query(ctx, selectSession+" WHERE status IN ('ACTIVE', 'PAUSED') ORDER BY started_at, id")
}

func (r *SessionRepository) ListEnded(ctx context.Context, restaurantID string, from, to time.Time) ([]*models.Session, error) {
	return r.query(ctx, selectSession+`
        WHERE restaurant_id = $1 AND status = 'ENDED' AND started_at >= $2 AND started_at < $3
        ORDER BY started_at, id`, restaurantID, from, to)
}

func (r *SessionRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Session, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func encodeSession(session *models.Session) ([]byte, []byte, error) {
	config, err := json.Marshal(session.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("encode session config: %w", err)
	}
	stats, err := json.Marshal(session.Platforms)
	if err != nil {
		return nil, nil, fmt.Errorf("encode platform stats: %w", err)
	}
	return config, stats, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var pauseReason, endReason *string
	var config, stats []byte
	s := &models.Session{}
	err := row.Scan(
		&s.ID,
		&s.RestaurantID,
		&s.Status,
		&s.StartedAt,
		&s.EndedAt,
		&s.PausedAt,
		&s.PauseEndTime,
		&pauseReason,
		&s.ScheduledEndAt,
		&endReason,
		&config,
		&s.TotalOrders,
		&s.TotalRevenue,
		&s.TotalPrepTime,
		&s.AvgPrepTime,
		&s.PeakConcurrentOrders,
		&s.PeakUtilization,
		&stats,
	)
	if err != nil {
		return nil, err
	}
	s.PauseReason = deref(pauseReason)
	s.EndReason = models.EndReason(deref(endReason))
	if err := json.Unmarshal(config, &s.Config); err != nil {
		return nil, fmt.Errorf("decode session config: %w", err)
	}
	if err := json.Unmarshal(stats, &s.Platforms); err != nil {
		return nil, fmt.Errorf("decode platform stats: %w", err)
	}
	if s.Platforms == nil {
		s.Platforms = make(map[models.Platform]*models.PlatformStats)
	}
	return s, nil
}
