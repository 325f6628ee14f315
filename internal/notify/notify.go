// Package notify sends templated messages to workers and managers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chrisdamba/ghostkitchen/internal/producers"
)

const (
	TemplateShiftAssigned = "ghost_kitchen_shift_assigned"
	TemplateOpportunity   = "ghost_kitchen_opportunity"
)

// Notifier is best effort: callers log failures and carry on.
type Notifier interface {
	Send(ctx context.Context, userID, templateKey string, payload map[string]any) error
}

type message struct {
	UserID   string         `json:"user_id"`
	Template string         `json:"template"`
	Payload  map[string]any `json:"payload"`
}

// Kafka queues notifications for a delivery worker service.
type Kafka struct {
	producer producers.Producer
	topic    string
}

func NewKafka(producer producers.Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Send(_ context.Context, userID, templateKey string, payload map[string]any) error {
	data, err := json.Marshal(message{UserID: userID, Template: templateKey, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", templateKey, err)
	}
	return k.producer.WriteMessage(k.topic, userID, data)
}

type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, userID, templateKey string, payload map[string]any) error {
	l.logger.Info("notification sent", "user_id", userID, "template", templateKey, "payload", payload)
	return nil
}

type Sent struct {
	UserID   string
	Template string
	Payload  map[string]any
}

// Recorder keeps sent notifications in memory; Err is returned after recording.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, userID, templateKey string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{UserID: userID, Template: templateKey, Payload: payload})
	return r.Err
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}
