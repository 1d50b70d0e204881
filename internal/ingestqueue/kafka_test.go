package ingestqueue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/config"
)

func noopHandler(ctx context.Context, feedItemID int64) (bool, error) { return true, nil }

func TestNewConsumer_DisabledReturnsNilNil(t *testing.T) {
	c, err := NewConsumer(config.KafkaConfig{Enabled: false}, noopHandler)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewConsumer_EnabledWithoutBrokersErrors(t *testing.T) {
	_, err := NewConsumer(config.KafkaConfig{Enabled: true, Topic: "articles"}, noopHandler)
	assert.Error(t, err)
}

func TestNewConsumer_EnabledWithoutTopicErrors(t *testing.T) {
	_, err := NewConsumer(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}}, noopHandler)
	assert.Error(t, err)
}

func TestNewConsumer_DefaultsGroupID(t *testing.T) {
	c, err := NewConsumer(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "articles"}, noopHandler)
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })
	assert.Equal(t, "newsgraph-ingest", c.reader.Config().GroupID)
}
