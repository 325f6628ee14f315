// Package producers wraps the Kafka client shared by the event publisher and the platform gateway.
package producers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/chrisdamba/ghostkitchen/internal/models"
)

// Producer writes one keyed message to a topic.
type Producer interface {
	WriteMessage(topic, key string, msg []byte) error
	Close() error
}

type SaramaProducer struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// NewSaramaConfig returns the producer settings used for every ghost kitchen topic.
func NewSaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // required by SyncProducer
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second
	return saramaConfig
}

func NewSaramaProducer(config models.KafkaConfig, logger *slog.Logger) (*SaramaProducer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	brokerList := config.Brokers()
	if len(brokerList) == 0 {
		return nil, fmt.Errorf("%w: kafka broker list is empty", models.ErrInvalidArgument)
	}

	producer, err := sarama.NewSyncProducer(brokerList, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	logger.Info("sarama producer created", "brokers", brokerList)
	return NewSaramaProducerFrom(producer, logger), nil
}

// NewSaramaProducerFrom wraps an existing SyncProducer, such as sarama's mocks in tests.
func NewSaramaProducerFrom(producer sarama.SyncProducer, logger *slog.Logger) *SaramaProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaramaProducer{producer: producer, logger: logger}
}

// WriteMessage sends msg keyed by key so events of one restaurant stay on one partition.
func (s *SaramaProducer) WriteMessage(topic, key string, msg []byte) error {
	if s.producer == nil {
		return errors.New("sarama producer is not initialized")
	}

	pm := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(msg),
	}
	if key != "" {
		pm.Key = sarama.StringEncoder(key)
	}
	partition, offset, err := s.producer.SendMessage(pm)
	if err != nil {
		s.logger.Error("failed to send message", "topic", topic, "key", key, "err", err)
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	s.logger.Debug("message sent", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

func (s *SaramaProducer) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
