// Package ingestqueue feeds the article batch driver from a Kafka topic
// of article-ready events, as an alternative trigger source to polling
// the processing-state table. It is config-gated off by default; the
// polling driver in internal/ingest remains the trigger of record.
package ingestqueue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"newsgraph/internal/config"
)

// ArticleReadyEvent is the message payload published to Kafka once a
// feed item's full_content is available for processing.
type ArticleReadyEvent struct {
	FeedItemID int64 `json:"feed_item_id"`
}

// Handler processes one feed item's worth of ingestion, returning
// whether it completed. It mirrors the per-article step of the batch
// driver so a Kafka-triggered article runs the identical pipeline.
type Handler func(ctx context.Context, feedItemID int64) (bool, error)

// Consumer reads ArticleReadyEvent messages from a Kafka topic and
// invokes Handler for each one, committing only after the handler
// returns (successfully or not) so a crash mid-batch redelivers.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

// NewConsumer builds a Consumer from cfg. It returns (nil, nil) if Kafka
// ingestion is disabled, matching the optional-collaborator pattern used
// elsewhere in config-gated wiring.
func NewConsumer(cfg config.KafkaConfig, handler Handler) (*Consumer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka ingest: brokers and topic are required when enabled")
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "newsgraph-ingest"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  groupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Consumer{reader: reader, handler: handler}, nil
}

// Run consumes messages until ctx is cancelled or a non-transient read
// error occurs. Malformed messages are logged and skipped rather than
// aborting the loop.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var ev ArticleReadyEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn().Err(err).Str("raw", string(msg.Value)).Msg("ingestqueue: malformed article-ready event")
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		start := time.Now()
		_, herr := c.handler(ctx, ev.FeedItemID)
		if herr != nil {
			log.Warn().Err(herr).Int64("feed_item_id", ev.FeedItemID).Dur("took", time.Since(start)).Msg("ingestqueue: handler failed")
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Warn().Err(err).Str("partition_offset", strconv.FormatInt(msg.Offset, 10)).Msg("ingestqueue: commit failed")
		}
	}
}

// Close releases the underlying Kafka reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
