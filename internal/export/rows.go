package export

import (
	"strings"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

type ForecastRow struct {
	RestaurantID      string  `parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Date              string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	Hour              int32   `parquet:"name=hour,type=INT32"`
	PredictedDineIn   int32   `parquet:"name=predictedDineIn,type=INT32"`
	PredictedDelivery int32   `parquet:"name=predictedDelivery,type=INT32"`
	Confidence        float64 `parquet:"name=confidence,type=DOUBLE"`
	WeatherBucket     string  `parquet:"name=weatherBucket,type=BYTE_ARRAY,convertedtype=UTF8"`
	WeatherDineIn     float64 `parquet:"name=weatherDineIn,type=DOUBLE"`
	WeatherDelivery   float64 `parquet:"name=weatherDelivery,type=DOUBLE"`
	EventDineIn       float64 `parquet:"name=eventDineIn,type=DOUBLE"`
	EventDelivery     float64 `parquet:"name=eventDelivery,type=DOUBLE"`
	Events            string  `parquet:"name=events,type=BYTE_ARRAY,convertedtype=UTF8"`
}

type SessionRow struct {
	SessionID            string  `parquet:"name=sessionId,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID         string  `parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	StartedAt            int64   `parquet:"name=startedAt,type=INT64"`
	EndedAt              int64   `parquet:"name=endedAt,type=INT64"`
	EndReason            string  `parquet:"name=endReason,type=BYTE_ARRAY,convertedtype=UTF8"`
	PeakConcurrentOrders int32   `parquet:"name=peakConcurrentOrders,type=INT32"`
	PeakUtilization      float64 `parquet:"name=peakUtilization,type=DOUBLE"`
	CompletedOrders      int32   `parquet:"name=completedOrders,type=INT32"`
	Revenue              float64 `parquet:"name=revenue,type=DOUBLE"`
	PlatformFees         float64 `parquet:"name=platformFees,type=DOUBLE"`
	LaborCost            float64 `parquet:"name=laborCost,type=DOUBLE"`
	LaborHours           float64 `parquet:"name=laborHours,type=DOUBLE"`
	SupplyCost           float64 `parquet:"name=supplyCost,type=DOUBLE"`
	GrossProfit          float64 `parquet:"name=grossProfit,type=DOUBLE"`
	NetProfit            float64 `parquet:"name=netProfit,type=DOUBLE"`
	Margin               float64 `parquet:"name=margin,type=DOUBLE"`
}

type ReportRow struct {
	RestaurantID string  `parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Period       string  `parquet:"name=period,type=BYTE_ARRAY,convertedtype=UTF8"`
	Label        string  `parquet:"name=label,type=BYTE_ARRAY,convertedtype=UTF8"`
	Start        int64   `parquet:"name=start,type=INT64"`
	End          int64   `parquet:"name=end,type=INT64"`
	Sessions     int32   `parquet:"name=sessions,type=INT32"`
	Orders       int32   `parquet:"name=orders,type=INT32"`
	Revenue      float64 `parquet:"name=revenue,type=DOUBLE"`
	Costs        float64 `parquet:"name=costs,type=DOUBLE"`
	NetProfit    float64 `parquet:"name=netProfit,type=DOUBLE"`
}

func forecastRows(restaurantID string, date time.Time, forecasts []models.HourlyForecast) []any {
	rows := make([]any, len(forecasts))
	for i, f := range forecasts {
		rows[i] = ForecastRow{
			RestaurantID:      restaurantID,
			Date:              date.Format(time.DateOnly),
			Hour:              int32(f.Hour),
			PredictedDineIn:   int32(f.PredictedDineIn),
			PredictedDelivery: int32(f.PredictedDelivery),
			Confidence:        f.Confidence,
			WeatherBucket:     string(f.Weather.Bucket),
			WeatherDineIn:     f.Weather.DineIn,
			WeatherDelivery:   f.Weather.Delivery,
			EventDineIn:       f.Event.DineIn,
			EventDelivery:     f.Event.Delivery,
			Events:            strings.Join(f.Event.Events, ","),
		}
	}
	return rows
}

func sessionRow(s *models.Session, p *models.SessionPnL) SessionRow {
	row := SessionRow{
		SessionID:            s.ID,
		RestaurantID:         s.RestaurantID,
		StartedAt:            s.StartedAt.Unix(),
		EndReason:            string(s.EndReason),
		PeakConcurrentOrders: int32(s.PeakConcurrentOrders),
		PeakUtilization:      s.PeakUtilization,
		CompletedOrders:      int32(p.CompletedOrders),
		Revenue:              p.Revenue,
		PlatformFees:         p.PlatformFees,
		LaborCost:            p.LaborCost,
		LaborHours:           p.LaborHours,
		SupplyCost:           p.SupplyCost,
		GrossProfit:          p.GrossProfit,
		NetProfit:            p.NetProfit,
		Margin:               p.Margin,
	}
	if s.EndedAt != nil {
		row.EndedAt = s.EndedAt.Unix()
	}
	return row
}

func reportRows(r *models.Report) []any {
	rows := make([]any, len(r.Buckets))
	for i, b := range r.Buckets {
		rows[i] = ReportRow{
			RestaurantID: r.RestaurantID,
			Period:       r.Period,
			Label:        b.Label,
			Start:        b.Start.Unix(),
			End:          b.End.Unix(),
			Sessions:     int32(b.Sessions),
			Orders:       int32(b.Orders),
			Revenue:      b.Revenue,
			Costs:        b.Costs,
			NetProfit:    b.NetProfit,
		}
	}
	return rows
}
