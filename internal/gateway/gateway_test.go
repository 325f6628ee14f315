package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/ghostkitchen/internal/clock"
	"github.com/chrisdamba/ghostkitchen/internal/models"
	"github.com/chrisdamba/ghostkitchen/internal/producers"
)

func TestKafkaSendsOneCommandPerPlatform(t *testing.T) {
	mock := mocks.NewSyncProducer(t, producers.NewSaramaConfig())
	mock.ExpectSendMessageAndSucceed()
	mock.ExpectSendMessageAndSucceed()

	g := NewKafka(producers.NewSaramaProducerFrom(mock, nil), "cmds", clock.NewFake(time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)))
	err := g.SetAcceptingOrders(context.Background(), "r1", true, []models.Platform{models.PlatformDoorDash, models.PlatformUberEats})
	require.NoError(t, err)
	require.NoError(t, mock.Close())
}

func TestKafkaStopsOnFirstFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, producers.NewSaramaConfig())
	mock.ExpectSendMessageAndFail(sarama.ErrNotConnected)

	g := NewKafka(producers.NewSaramaProducerFrom(mock, nil), "cmds", clock.Real{})
	err := g.SetAcceptingOrders(context.Background(), "r1", false, []models.Platform{models.PlatformDoorDash, models.PlatformGrubhub})
	require.ErrorIs(t, err, sarama.ErrNotConnected)
	assert.Contains(t, err.Error(), "DOORDASH")
	require.NoError(t, mock.Close())
}
