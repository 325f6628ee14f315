package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
)

type ForecastRepository struct {
	pool *pgxpool.Pool
}

func NewForecastRepository(pool *pgxpool.Pool) *ForecastRepository {
	return &ForecastRepository{pool: pool}
}

func (r *ForecastRepository) Save(ctx context.Context, rec *models.ForecastRecord) error {
	query := `
        INSERT INTO demand_forecasts (
            id, restaurant_id, forecast_date, hour, predicted_dine_in, predicted_delivery,
            confidence, actual_dine_in, actual_delivery, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (restaurant_id, forecast_date, hour) DO UPDATE SET
            predicted_dine_in = EXCLUDED.predicted_dine_in,
            predicted_delivery = EXCLUDED.predicted_delivery,
            confidence = EXCLUDED.confidence,
            created_at = EXCLUDED.created_at
    `
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.RestaurantID,
		repositories.DayKey(rec.Date),
		rec.Hour,
		rec.PredictedDineIn,
		rec.PredictedDelivery,
		rec.Confidence,
		rec.ActualDineIn,
		rec.ActualDelivery,
		rec.CreatedAt,
	)
	return err
}

func (r *ForecastRepository) RecordActual(ctx context.Context, restaurantID string, date time.Time, hour, dineIn, delivery int) error {
	query := `
        UPDATE demand_forecasts SET actual_dine_in = $4, actual_delivery = $5
        WHERE restaurant_id = $1 AND forecast_date = $2 AND hour = $3
    `
	tag, err := r.pool.Exec(ctx, query, restaurantID, repositories.DayKey(date), hour, dineIn, delivery)
	if err != nil {
		return err
	}
	return checkAffected(tag, fmt.Sprintf("forecast for %s %s hour %d", restaurantID, date.Format("2006-01-02"), hour))
}

func (r *ForecastRepository) ListSince(ctx context.Context, restaurantID string, since time.Time) ([]*models.ForecastRecord, error) {
	query := `
        SELECT
            id, restaurant_id, forecast_date, hour, predicted_dine_in, predicted_delivery,
            confidence, actual_dine_in, actual_delivery, created_at
        FROM demand_forecasts
        WHERE restaurant_id = $1 AND forecast_date >= $2
        ORDER BY forecast_date, hour
    `
	rows, err := r.pool.Query(ctx, query, restaurantID, repositories.DayKey(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ForecastRecord
	for rows.Next() {
		rec := &models.ForecastRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.RestaurantID,
			&rec.Date,
			&rec.Hour,
			&rec.PredictedDineIn,
			&rec.PredictedDelivery,
			&rec.Confidence,
			&rec.ActualDineIn,
			&rec.ActualDelivery,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
