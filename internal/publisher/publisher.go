// Package publisher delivers lifecycle, capacity and stats events to restaurant channels.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/producers"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, event models.Event) error
}

// Kafka writes each event to one topic keyed by channel.
type Kafka struct {
	producer producers.Producer
	topic    string
}

func NewKafka(producer producers.Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

type envelope struct {
	Channel string       `json:"channel"`
	Event   models.Event `json:"event"`
}

func (k *Kafka) Publish(_ context.Context, channel string, event models.Event) error {
	payload, err := json.Marshal(envelope{Channel: channel, Event: event})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Name, err)
	}
	return k.producer.WriteMessage(k.topic, channel, payload)
}

// Log writes events to a structured logger. Used when Kafka is disabled.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, channel string, event models.Event) error {
	l.logger.Info("event published",
		"channel", channel,
		"event", event.Name,
		"restaurant_id", event.RestaurantID,
		"session_id", event.SessionID,
	)
	return nil
}

type Published struct {
	Channel string
	Event   models.Event
}

// Recorder keeps every published event in memory. Err, when set, is returned from Publish
// after the event is recorded.
type Recorder struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, channel string, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Channel: channel, Event: event})
	return r.Err
}

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Names lists the recorded event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, p := range r.events {
		names[i] = p.Event.Name
	}
	return names
}

// Count returns how many events named name were recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, got := range r.Names() {
		if got == name {
			n++
		}
	}
	return n
}
