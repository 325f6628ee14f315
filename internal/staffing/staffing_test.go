package staffing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/notify"
	"github.com/chrisdamba/ghostkitchen/internal/repositories"
	"github.com/chrisdamba/ghostkitchen/internal/repositories/memory"
)

var day = time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)

type demand map[int]models.HourlyForecast

func (d demand) ForecastDemand(_ context.Context, _ string, _ time.Time, _ []int) ([]models.HourlyForecast, error) {
	out := make([]models.HourlyForecast, 24)
	for h := range out {
		fc, ok := d[h]
		if !ok {
			fc = models.HourlyForecast{Confidence: 0.3}
		}
		fc.Hour = h
		out[h] = fc
	}
	return out, nil
}

func deliveryOnly(orders int, hours ...int) demand {
	d := demand{}
	for _, h := range hours {
		d[h] = models.HourlyForecast{PredictedDelivery: orders, Confidence: 0.8}
	}
	return d
}

func testConfig() models.StaffingConfig {
	return models.StaffingConfig{
		OrdersPerStaffHour:   15,
		PackStations:         2,
		OrdersPerStationHour: 20,
		CoversPerServerHour:  12,
		OptimalBuffer:        0.2,
		OpportunityMinOrders: 10,
	}
}

type fixture struct {
	repos    *repositories.Repositories
	notifier *notify.Recorder
	rec      *Recommender
}

func newFixture(forecaster DemandForecaster, cfg models.StaffingConfig) *fixture {
	repos := memory.NewRepositories()
	notifier := notify.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		repos:    repos,
		notifier: notifier,
		rec:      NewRecommender(forecaster, repos, notifier, clock.NewFake(day), logger, cfg),
	}
}

func at(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

func (fx *fixture) shift(t *testing.T, id string, pos models.Position, status models.ShiftStatus, from, to int) {
	t.Helper()
	require.NoError(t, fx.repos.Shifts.Create(context.Background(), &models.Shift{
		ID: id, RestaurantID: "r1", Position: pos, Type: models.ShiftTypeRegular, Status: status, Start: at(from), End: at(to),
	}))
}

func TestStaffFormulas(t *testing.T) {
	r := newFixture(demand{}, testConfig()).rec
	assert.Equal(t, 0, r.DeliveryStaff(0))
	assert.Equal(t, 1, r.DeliveryStaff(10))
	assert.Equal(t, 2, r.DeliveryStaff(30))
	assert.Equal(t, 3, r.DeliveryStaff(45))
	assert.Equal(t, 3, r.OptimalDeliveryStaff(30))
	assert.Equal(t, 3, r.Servers(25))

	cfg := testConfig()
	cfg.OrdersPerStaffHour = 30
	stationBound := newFixture(demand{}, cfg).rec
	assert.Equal(t, 2, stationBound.DeliveryStaff(30), "station capacity dominates")
}

func TestRecommendGapRunDefaultWindowEnd(t *testing.T) {
	fx := newFixture(deliveryOnly(45, 17, 18, 19, 20), testConfig())

	rec, err := fx.rec.Recommend(context.Background(), "r1", day)
	require.NoError(t, err)
	require.Len(t, rec.Hours, 24)
	assert.Equal(t, 3, rec.Hours[17].Gap)

	require.Len(t, rec.SuggestedShifts, 1)
	s := rec.SuggestedShifts[0]
	assert.Equal(t, models.PriorityHigh, s.Priority)
	assert.Equal(t, models.PositionDeliveryPack, s.Position)
	assert.Equal(t, models.ShiftTypeGhostKitchen, s.Type)
	assert.Equal(t, at(17), s.Start)
	assert.Equal(t, at(21), s.End)
	assert.Equal(t, 3, s.StaffCount)
	assert.Contains(t, s.Reason, "Short 3 staff")
	assert.Contains(t, s.Reason, "between 17:00 and 21:00")
}

func TestRecommendGapRunTrimmedWindowEnd(t *testing.T) {
	cfg := testConfig()
	cfg.TrimClosingHour = true
	fx := newFixture(deliveryOnly(45, 17, 18, 19, 20), cfg)

	rec, err := fx.rec.Recommend(context.Background(), "r1", day)
	require.NoError(t, err)
	require.Len(t, rec.SuggestedShifts, 1)
	assert.Equal(t, at(17), rec.SuggestedShifts[0].Start)
	assert.Equal(t, at(20), rec.SuggestedShifts[0].End)
	assert.Contains(t, rec.SuggestedShifts[0].Reason, "between 17:00 and 20:00")
}

func TestRecommendRunRules(t *testing.T) {
	d := deliveryOnly(10, 9, 12, 13)
	d[16] = models.HourlyForecast{PredictedDineIn: 36}
	d[17] = models.HourlyForecast{PredictedDineIn: 36}
	d[20] = models.HourlyForecast{PredictedDelivery: 15, PredictedDineIn: 12}
	d[21] = models.HourlyForecast{PredictedDelivery: 15, PredictedDineIn: 12}
	fx := newFixture(d, testConfig())

	rec, err := fx.rec.Recommend(context.Background(), "r1", day)
	require.NoError(t, err)
	require.Len(t, rec.SuggestedShifts, 3, "the lone gap hour at 09:00 is ignored")

	medium := rec.SuggestedShifts[0]
	assert.Equal(t, at(12), medium.Start)
	assert.Equal(t, models.PriorityMedium, medium.Priority)
	assert.Equal(t, 1, medium.StaffCount)

	servers := rec.SuggestedShifts[1]
	assert.Equal(t, models.PositionServer, servers.Position)
	assert.Equal(t, models.ShiftTypeRegular, servers.Type)
	assert.Equal(t, models.PriorityHigh, servers.Priority)

	tie := rec.SuggestedShifts[2]
	assert.Equal(t, models.PositionDeliveryPack, tie.Position, "ties go to delivery pack")
	assert.Equal(t, models.PriorityHigh, tie.Priority)
}

func TestRecommendCountsCoveringShifts(t *testing.T) {
	fx := newFixture(deliveryOnly(45, 17, 18, 19, 20), testConfig())
	fx.shift(t, "a", models.PositionDeliveryPack, models.ShiftStatusAssigned, 17, 19)
	fx.shift(t, "b", models.PositionDeliveryPack, models.ShiftStatusCancelled, 17, 21)
	fx.shift(t, "c", models.PositionLineCook, models.ShiftStatusAssigned, 17, 21)

	rec, err := fx.rec.Recommend(context.Background(), "r1", day)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Hours[17].ScheduledDelivery)
	assert.Equal(t, 1, rec.Hours[18].ScheduledDelivery)
	assert.Equal(t, 0, rec.Hours[19].ScheduledDelivery, "shift end is exclusive")
	assert.Equal(t, 2, rec.Hours[18].Gap)
	assert.Equal(t, 3, rec.Hours[19].Gap)
}

func TestRecommendReduceAdjustments(t *testing.T) {
	fx := newFixture(demand{}, testConfig())
	fx.shift(t, "a", models.PositionDeliveryPack, models.ShiftStatusAssigned, 12, 18)
	fx.shift(t, "b", models.PositionServer, models.ShiftStatusAssigned, 13, 16)
	fx.shift(t, "c", models.PositionDeliveryPack, models.ShiftStatusAssigned, 14, 15)

	rec, err := fx.rec.Recommend(context.Background(), "r1", day)
	require.NoError(t, err)
	require.Len(t, rec.Adjustments, 2)

	assert.Equal(t, "a", rec.Adjustments[0].ShiftID)
	assert.Equal(t, models.AdjustmentReduce, rec.Adjustments[0].Type)
	assert.Equal(t, at(18), rec.Adjustments[0].CurrentEnd)
	assert.Equal(t, at(14), rec.Adjustments[0].NewEnd)

	assert.Equal(t, "b", rec.Adjustments[1].ShiftID)
	assert.Equal(t, at(15), rec.Adjustments[1].NewEnd)
}

func TestRecommendReduceNeverEndsAtStart(t *testing.T) {
	fx := newFixture(demand{}, testConfig())
	fx.shift(t, "d1", models.PositionDeliveryPack, models.ShiftStatusAssigned, 14, 15)
	fx.shift(t, "d2", models.PositionDeliveryPack, models.ShiftStatusAssigned, 14, 15)

	rec, err := fx.rec.Recommend(context.Background(), "r1", day)
	require.NoError(t, err)
	assert.Empty(t, rec.Adjustments)
}

func seedWorkers(t *testing.T, fx *fixture) {
	t.Helper()
	ctx := context.Background()
	pref := []models.AvailabilityWindow{{Weekday: day.Weekday(), StartHour: 16, EndHour: 23}}
	workers := []*models.WorkerProfile{
		{ID: "w1", RestaurantID: "r1", Name: "Ada", Positions: []models.Position{models.PositionDeliveryPack}, ReliabilityScore: 0.9, Availability: pref},
		{ID: "w2", RestaurantID: "r1", Name: "Ben", Positions: []models.Position{models.PositionDeliveryPack}, ReliabilityScore: 0.95},
		{ID: "w3", RestaurantID: "r1", Name: "Cy", Positions: []models.Position{models.PositionDeliveryPack}, ReliabilityScore: 0.5},
		{ID: "w4", RestaurantID: "r1", Name: "Di", Positions: []models.Position{models.PositionDeliveryPack, models.PositionServer}, ReliabilityScore: 0.99},
		{ID: "w5", RestaurantID: "r1", Name: "Ed", Positions: []models.Position{models.PositionServer}, ReliabilityScore: 1},
		{ID: "w6", RestaurantID: "r1", Name: "Flo", Positions: []models.Position{models.PositionDeliveryPack}, ReliabilityScore: 0.7},
	}
	require.NoError(t, fx.repos.Workers.BulkCreate(ctx, workers))
	require.NoError(t, fx.repos.TimeOff.Create(ctx, &models.TimeOff{ID: "t1", WorkerID: "w2", Start: day, End: day.Add(24 * time.Hour), Status: models.TimeOffStatusApproved}))
	require.NoError(t, fx.repos.TimeOff.Create(ctx, &models.TimeOff{ID: "t2", WorkerID: "w6", Start: day, End: day.Add(24 * time.Hour), Status: models.TimeOffStatusPending}))
	require.NoError(t, fx.repos.Shifts.Create(ctx, &models.Shift{ID: "busy", RestaurantID: "r1", WorkerID: "w4", Position: models.PositionServer, Status: models.ShiftStatusAssigned, Start: at(16), End: at(19)}))
}

func TestFindAvailableDeliveryWorkersRanking(t *testing.T) {
	fx := newFixture(demand{}, testConfig())
	seedWorkers(t, fx)

	ranked, err := fx.rec.FindAvailableDeliveryWorkers(context.Background(), "r1", at(17), at(21))
	require.NoError(t, err)

	var ids []string
	for _, a := range ranked {
		ids = append(ids, a.Worker.ID)
	}
	assert.Equal(t, []string{"w1", "w6", "w3", "w4", "w2"}, ids)

	assert.True(t, ranked[0].WithinPreference)
	assert.False(t, ranked[2].WithinPreference)
	assert.Equal(t, "outside availability preference", ranked[2].Note)
	assert.False(t, ranked[3].IsAvailable)
	assert.Contains(t, ranked[3].Note, "busy")
	assert.Equal(t, "approved time off", ranked[4].Note)
}

func TestAutoCreateGhostShiftsAssignsDistinctWorkers(t *testing.T) {
	fx := newFixture(demand{}, testConfig())
	seedWorkers(t, fx)
	opp := models.Opportunity{RestaurantID: "r1", Date: day, StartHour: 17, EndHour: 21, PredictedOrders: 60, RecommendedStaff: 4}

	shifts, err := fx.rec.AutoCreateGhostShifts(context.Background(), opp, true, "manager-1")
	require.NoError(t, err)
	require.Len(t, shifts, 4)

	assert.Equal(t, "w1", shifts[0].WorkerID)
	assert.Equal(t, "w6", shifts[1].WorkerID)
	assert.Equal(t, "w3", shifts[2].WorkerID)
	assert.Empty(t, shifts[3].WorkerID, "nobody left to assign")
	assert.Equal(t, models.ShiftStatusScheduled, shifts[3].Status)

	for _, s := range shifts[:3] {
		assert.Equal(t, models.ShiftStatusAssigned, s.Status)
		assert.Equal(t, models.ShiftTypeGhostKitchen, s.Type)
		assert.Equal(t, at(17), s.Start)
		assert.Equal(t, at(21), s.End)
		require.Len(t, s.StatusHistory, 2)
		assert.Equal(t, "manager-1", s.StatusHistory[1].ChangedBy)
	}
	assert.Len(t, fx.notifier.Sent(), 3)

	stored, err := fx.repos.Shifts.GetByID(context.Background(), shifts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "w1", stored.WorkerID)
}

func TestAutoCreateGhostShiftsWithoutAssignAndFailingNotifier(t *testing.T) {
	fx := newFixture(demand{}, testConfig())
	seedWorkers(t, fx)
	opp := models.Opportunity{RestaurantID: "r1", Date: day, StartHour: 11, EndHour: 13, RecommendedStaff: 2}

	shifts, err := fx.rec.AutoCreateGhostShifts(context.Background(), opp, false, "manager-1")
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	for _, s := range shifts {
		assert.Empty(t, s.WorkerID)
		require.Len(t, s.StatusHistory, 1)
	}

	fx.notifier.Err = errors.New("smtp down")
	shifts, err = fx.rec.AutoCreateGhostShifts(context.Background(), opp, true, "manager-1")
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	// w4's only shift is 16-19, so it is free and the most reliable for a lunch window.
	assert.Equal(t, "w4", shifts[0].WorkerID)
	assert.Equal(t, "w1", shifts[1].WorkerID)
	assert.Equal(t, models.ShiftStatusAssigned, shifts[1].Status)

	_, err = fx.rec.AutoCreateGhostShifts(context.Background(), models.Opportunity{RestaurantID: "r1", StartHour: 5, EndHour: 5, RecommendedStaff: 1}, false, "x")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestFindOpportunities(t *testing.T) {
	d := demand{
		11: {PredictedDelivery: 12, Confidence: 0.8},
		12: {PredictedDelivery: 15, Confidence: 0.6},
		13: {PredictedDelivery: 5, Confidence: 0.9},
		17: {PredictedDelivery: 10, Confidence: 0.9},
		18: {PredictedDelivery: 20, Confidence: 0.9},
		19: {PredictedDelivery: 30, Confidence: 0.6},
		21: {PredictedDelivery: 11, Confidence: 0.9},
	}
	fx := newFixture(d, testConfig())

	opps, err := fx.rec.FindOpportunities(context.Background(), "r1", day)
	require.NoError(t, err)
	require.Len(t, opps, 2)

	assert.Equal(t, 11, opps[0].StartHour)
	assert.Equal(t, 13, opps[0].EndHour)
	assert.Equal(t, 27, opps[0].PredictedOrders)
	assert.Equal(t, 1, opps[0].RecommendedStaff)
	assert.Equal(t, 0.7, opps[0].Confidence)

	assert.Equal(t, 17, opps[1].StartHour)
	assert.Equal(t, 20, opps[1].EndHour)
	assert.Equal(t, 60, opps[1].PredictedOrders)
	assert.Equal(t, 2, opps[1].RecommendedStaff)
}
