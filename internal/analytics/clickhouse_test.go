package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/config"
)

func TestNewClickHouseSink_DisabledReturnsNilNil(t *testing.T) {
	sink, err := NewClickHouseSink(context.Background(), config.ClickHouseConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, sink)
}

func TestNewClickHouseSink_EnabledWithoutDSNErrors(t *testing.T) {
	_, err := NewClickHouseSink(context.Background(), config.ClickHouseConfig{Enabled: true})
	assert.Error(t, err)
}

func TestClickHouseSink_RecordOnNilConnErrors(t *testing.T) {
	var sink *ClickHouseSink
	err := sink.Record(context.Background(), QueryRecord{Query: "x"})
	assert.Error(t, err)
}
