package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Cache.PatternTTL)
	assert.Equal(t, 8, cfg.Forecast.LookbackWeeks)
	assert.Equal(t, 15.0, cfg.Staffing.OrdersPerStaffHour)
	assert.False(t, cfg.Staffing.TrimClosingHour)
	assert.Equal(t, 30.0, cfg.Analytics.PlatformFees[PlatformUberEats].CommissionPct)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"cache": {"pattern_ttl": "30m"},
		"staffing": {"trim_closing_hour": true, "pack_stations": 3},
		"kafka": {"enabled": true, "broker_list": "a:9092, b:9092"},
		"analytics": {"platform_fees": {"DOORDASH": {"commission_pct": 12, "flat_fee": 0.5}}},
		"simulation": {"start_date": "2024-03-04T00:00:00Z"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Cache.PatternTTL)
	assert.True(t, cfg.Staffing.TrimClosingHour)
	assert.Equal(t, 3.0, cfg.Staffing.PackStations)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers())
	assert.Equal(t, PlatformFee{CommissionPct: 12, FlatFee: 0.5}, cfg.Analytics.PlatformFees[PlatformDoorDash])
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), cfg.Simulation.StartDate.UTC())
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestConfigValidateRejectsZeroThroughput(t *testing.T) {
	cfg := Config{Forecast: ForecastConfig{LookbackWeeks: 8}}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidArgument)
}
