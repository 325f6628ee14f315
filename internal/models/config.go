package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type KafkaConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	BrokerList         string `mapstructure:"broker_list"`
	EventsTopic        string `mapstructure:"events_topic"`
	GatewayTopic       string `mapstructure:"gateway_topic"`
	NotificationsTopic string `mapstructure:"notifications_topic"`
}

// Brokers splits the comma separated broker list.
func (k KafkaConfig) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(k.BrokerList, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type CacheConfig struct {
	PatternTTL time.Duration `mapstructure:"pattern_ttl"`
}

type ForecastConfig struct {
	LookbackWeeks int `mapstructure:"lookback_weeks"`
	AccuracyDays  int `mapstructure:"accuracy_days"`
	Parallelism   int `mapstructure:"parallelism"`
}

type StaffingConfig struct {
	OrdersPerStaffHour   float64 `mapstructure:"orders_per_staff_hour"`
	PackStations         float64 `mapstructure:"pack_stations"`
	OrdersPerStationHour float64 `mapstructure:"orders_per_station_hour"`
	CoversPerServerHour  float64 `mapstructure:"covers_per_server_hour"`
	OptimalBuffer        float64 `mapstructure:"optimal_buffer"`
	TrimClosingHour      bool    `mapstructure:"trim_closing_hour"`
	OpportunityMinOrders int     `mapstructure:"opportunity_min_orders"`
}

type AnalyticsConfig struct {
	DefaultHourlyRate    float64                  `mapstructure:"default_hourly_rate"`
	DefaultPackagingCost float64                  `mapstructure:"default_packaging_cost"`
	PlatformFees         map[Platform]PlatformFee `mapstructure:"platform_fees"`
}

type ExportConfig struct {
	Format   string `mapstructure:"format"`
	Path     string `mapstructure:"path"`
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Region string `mapstructure:"s3_region"`
}

// SimulationConfig drives the synthetic history replay of the simulate command.
type SimulationConfig struct {
	Seed              int64         `mapstructure:"seed"`
	StartDate         time.Time     `mapstructure:"start_date"`
	EndDate           time.Time     `mapstructure:"end_date"`
	Restaurants       int           `mapstructure:"restaurants"`
	WorkersPerSite    int           `mapstructure:"workers_per_site"`
	OpenHour          int           `mapstructure:"open_hour"`
	CloseHour         int           `mapstructure:"close_hour"`
	OrdersPerHour     float64       `mapstructure:"orders_per_hour"`
	PeakHourFactor    float64       `mapstructure:"peak_hour_factor"`
	WeekendFactor     float64       `mapstructure:"weekend_factor"`
	MinPrepTime       int           `mapstructure:"min_prep_time"`
	MaxPrepTime       int           `mapstructure:"max_prep_time"`
	CancellationRate  float64       `mapstructure:"cancellation_rate"`
	MaxOrders         int           `mapstructure:"max_orders"`
	AutoDisablePct    float64       `mapstructure:"auto_disable_pct"`
	SchedulerInterval time.Duration `mapstructure:"scheduler_interval"`
	PauseRate         float64       `mapstructure:"pause_rate"`
	PauseDuration     time.Duration `mapstructure:"pause_duration"`
	CapacityCooldown  time.Duration `mapstructure:"capacity_cooldown"`
	CityLat           float64       `mapstructure:"city_lat"`
	CityLon           float64       `mapstructure:"city_lon"`
}

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	Staffing   StaffingConfig   `mapstructure:"staffing"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Export     ExportConfig     `mapstructure:"export"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// DefaultPlatformFees is the fee table used when neither config nor session override one.
func DefaultPlatformFees() map[Platform]PlatformFee {
	return map[Platform]PlatformFee{
		PlatformDoorDash: {CommissionPct: 15},
		PlatformUberEats: {CommissionPct: 30},
		PlatformGrubhub:  {CommissionPct: 20, FlatFee: 0.30},
		PlatformDirect:   {},
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.events_topic", "ghostkitchen.events")
	v.SetDefault("kafka.gateway_topic", "ghostkitchen.platform-commands")
	v.SetDefault("kafka.notifications_topic", "ghostkitchen.notifications")

	v.SetDefault("cache.pattern_ttl", time.Hour)

	v.SetDefault("forecast.lookback_weeks", 8)
	v.SetDefault("forecast.accuracy_days", 30)
	v.SetDefault("forecast.parallelism", 4)

	v.SetDefault("staffing.orders_per_staff_hour", 15.0)
	v.SetDefault("staffing.pack_stations", 2.0)
	v.SetDefault("staffing.orders_per_station_hour", 20.0)
	v.SetDefault("staffing.covers_per_server_hour", 12.0)
	v.SetDefault("staffing.optimal_buffer", 0.2)
	v.SetDefault("staffing.trim_closing_hour", false)
	v.SetDefault("staffing.opportunity_min_orders", 10)

	v.SetDefault("analytics.default_hourly_rate", 15.0)
	v.SetDefault("analytics.default_packaging_cost", 0.5)

	v.SetDefault("export.format", "parquet")
	v.SetDefault("export.path", "output")
	v.SetDefault("export.s3_region", "us-east-1")

	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.start_date", time.Now().AddDate(0, 0, -56).Format(time.RFC3339))
	v.SetDefault("simulation.end_date", time.Now().Format(time.RFC3339))
	v.SetDefault("simulation.restaurants", 3)
	v.SetDefault("simulation.workers_per_site", 6)
	v.SetDefault("simulation.open_hour", 11)
	v.SetDefault("simulation.close_hour", 22)
	v.SetDefault("simulation.orders_per_hour", 6.0)
	v.SetDefault("simulation.peak_hour_factor", 1.8)
	v.SetDefault("simulation.weekend_factor", 1.3)
	v.SetDefault("simulation.min_prep_time", 8)
	v.SetDefault("simulation.max_prep_time", 25)
	v.SetDefault("simulation.cancellation_rate", 0.03)
	v.SetDefault("simulation.max_orders", 12)
	v.SetDefault("simulation.auto_disable_pct", 0)
	v.SetDefault("simulation.scheduler_interval", 5*time.Minute)
	v.SetDefault("simulation.pause_rate", 0.1)
	v.SetDefault("simulation.pause_duration", 20*time.Minute)
	v.SetDefault("simulation.capacity_cooldown", 30*time.Minute)
	v.SetDefault("simulation.city_lat", 51.5074)
	v.SetDefault("simulation.city_lon", -0.1278)
}

// LoadConfig initializes and reads the configuration using Viper. An empty cfgFile
// falls back to ./config.json when present and to defaults otherwise.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("json")
	}

	v.SetEnvPrefix("ghostkitchen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if len(config.Analytics.PlatformFees) == 0 {
		config.Analytics.PlatformFees = DefaultPlatformFees()
	} else {
		// viper lower-cases map keys
		fees := make(map[Platform]PlatformFee, len(config.Analytics.PlatformFees))
		for p, fee := range config.Analytics.PlatformFees {
			fees[Platform(strings.ToUpper(string(p)))] = fee
		}
		config.Analytics.PlatformFees = fees
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects throughput constants that would divide by zero.
func (c *Config) Validate() error {
	s := c.Staffing
	if s.OrdersPerStaffHour <= 0 || s.OrdersPerStationHour <= 0 || s.CoversPerServerHour <= 0 {
		return fmt.Errorf("%w: staffing throughput constants must be positive", ErrInvalidArgument)
	}
	if s.PackStations < 0 || s.OptimalBuffer < 0 {
		return fmt.Errorf("%w: staffing pack_stations and optimal_buffer must not be negative", ErrInvalidArgument)
	}
	if c.Forecast.LookbackWeeks <= 0 {
		return fmt.Errorf("%w: forecast.lookback_weeks must be positive", ErrInvalidArgument)
	}
	return nil
}
