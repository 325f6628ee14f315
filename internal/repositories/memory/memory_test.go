package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

func TestSessionRepositorySingleOpenSession(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	start := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &models.Session{ID: "s1", RestaurantID: "r1", Status: models.SessionStatusActive, StartedAt: start}))
	err := repo.Create(ctx, &models.Session{ID: "s2", RestaurantID: "r1", Status: models.SessionStatusActive, StartedAt: start})
	require.ErrorIs(t, err, models.ErrInvalidState)

	open, err := repo.GetOpen(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "s1", open.ID)

	open.Status = models.SessionStatusEnded
	require.NoError(t, repo.Update(ctx, open))

	_, err = repo.GetOpen(ctx, "r1")
	require.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, repo.Create(ctx, &models.Session{ID: "s2", RestaurantID: "r1", Status: models.SessionStatusActive, StartedAt: start.Add(time.Hour)}))
}

func TestSessionRepositoryEndedIsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	require.NoError(t, repo.Create(ctx, &models.Session{ID: "s1", RestaurantID: "r1", Status: models.SessionStatusActive}))

	stale, err := repo.GetOpen(ctx, "r1")
	require.NoError(t, err)

	ended := stale.Clone()
	endedAt := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	ended.Status = models.SessionStatusEnded
	ended.EndedAt = &endedAt
	ended.EndReason = models.EndReasonManual
	require.NoError(t, repo.Update(ctx, ended))

	require.ErrorIs(t, repo.Update(ctx, stale), models.ErrInvalidState)

	again := ended.Clone()
	again.EndReason = models.EndReasonScheduled
	require.ErrorIs(t, repo.Update(ctx, again), models.ErrInvalidState)

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, got.Status)
	assert.Equal(t, models.EndReasonManual, got.EndReason)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, endedAt, *got.EndedAt)
}

func TestSessionRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	require.NoError(t, repo.Create(ctx, &models.Session{ID: "s1", RestaurantID: "r1", Status: models.SessionStatusActive}))

	s, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	s.TotalOrders = 99

	again, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.TotalOrders)
}

func TestSessionRepositoryListEnded(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	base := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)
	for i, status := range []models.SessionStatus{models.SessionStatusEnded, models.SessionStatusEnded, models.SessionStatusActive} {
		require.NoError(t, repo.Create(ctx, &models.Session{
			ID:           string(rune('a' + i)),
			RestaurantID: "r1",
			Status:       status,
			StartedAt:    base.AddDate(0, 0, i),
		}))
	}

	ended, err := repo.ListEnded(ctx, "r1", base, base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, "a", ended[0].ID)

	_, err = repo.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestShiftRepositoryOverlap(t *testing.T) {
	ctx := context.Background()
	repo := NewShiftRepository()
	start := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &models.Shift{ID: "sh1", RestaurantID: "r1", WorkerID: "w1", Start: start, End: start.Add(4 * time.Hour)}))

	shifts, err := repo.ListByWorker(ctx, "w1", start.Add(4*time.Hour), start.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, shifts)

	shifts, err = repo.ListByRestaurant(ctx, "r1", start.Add(3*time.Hour), start.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
}

func TestForecastRepositoryRecordActual(t *testing.T) {
	ctx := context.Background()
	repo := NewForecastRepository()
	day := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)

	err := repo.RecordActual(ctx, "r1", day, 18, 1, 2)
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.Save(ctx, &models.ForecastRecord{ID: "f1", RestaurantID: "r1", Date: day, Hour: 18, PredictedDelivery: 10}))
	require.NoError(t, repo.RecordActual(ctx, "r1", day, 18, 4, 12))

	recs, err := repo.ListSince(ctx, "r1", day.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 12, *recs[0].ActualDelivery)
	assert.Equal(t, 4, *recs[0].ActualDineIn)
}
