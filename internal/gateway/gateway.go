// Package gateway tells delivery platforms whether a restaurant is accepting orders.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/producers"
)

type PlatformGateway interface {
	SetAcceptingOrders(ctx context.Context, restaurantID string, accepting bool, platforms []models.Platform) error
}

// Command is the message a platform integration consumes.
type Command struct {
	RestaurantID string          `json:"restaurant_id"`
	Platform     models.Platform `json:"platform"`
	Accepting    bool            `json:"accepting"`
	IssuedAt     time.Time       `json:"issued_at"`
}

// Kafka emits one command per platform to the gateway topic.
type Kafka struct {
	producer producers.Producer
	topic    string
	clock    clock.Clock
}

func NewKafka(producer producers.Producer, topic string, c clock.Clock) *Kafka {
	return &Kafka{producer: producer, topic: topic, clock: c}
}

func (k *Kafka) SetAcceptingOrders(_ context.Context, restaurantID string, accepting bool, platforms []models.Platform) error {
	now := k.clock.Now()
	for _, p := range platforms {
		payload, err := json.Marshal(Command{RestaurantID: restaurantID, Platform: p, Accepting: accepting, IssuedAt: now})
		if err != nil {
			return fmt.Errorf("encode gateway command: %w", err)
		}
		if err := k.producer.WriteMessage(k.topic, restaurantID, payload); err != nil {
			return fmt.Errorf("notify %s for restaurant %s: %w", p, restaurantID, err)
		}
	}
	return nil
}

type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SetAcceptingOrders(_ context.Context, restaurantID string, accepting bool, platforms []models.Platform) error {
	l.logger.Info("platform accepting orders changed", "restaurant_id", restaurantID, "accepting", accepting, "platforms", platforms)
	return nil
}

type Call struct {
	RestaurantID string
	Accepting    bool
	Platforms    []models.Platform
}

// Recorder remembers every call. Err, when set, is returned after recording.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetAcceptingOrders(_ context.Context, restaurantID string, accepting bool, platforms []models.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{RestaurantID: restaurantID, Accepting: accepting, Platforms: append([]models.Platform(nil), platforms...)})
	return r.Err
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
