package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"ferryline/internal/availability"
	"ferryline/pkg/kafka"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// DeltaSink receives normalized availability deltas keyed by sailing id.
type DeltaSink func(sailingID string, delta model.AvailabilityDelta)

// Bridge consumes availability events published by external operators and
// feeds them into the same reconciliation path as the push channel. Events
// from this feed are always stamped as external regardless of what the
// producer claims.
type Bridge struct {
	consumer *kafka.Consumer
	log      *logger.Logger
}

func NewBridge(cfg *kafka.Config, topic, groupID string, sink DeltaSink, log *logger.Logger) (*Bridge, error) {
	if sink == nil {
		return nil, fmt.Errorf("delta sink cannot be nil")
	}
	blog := log.WithComponent("operator-feed")

	consumer, err := kafka.NewConsumer(cfg, topic, groupID, eventHandler(blog, sink), log)
	if err != nil {
		return nil, fmt.Errorf("create operator feed consumer: %w", err)
	}

	return &Bridge{consumer: consumer, log: blog}, nil
}

// eventHandler decodes one operator event and forwards it to the sink.
// Malformed events are dropped with a warning; returning nil keeps the
// consumer committing past them.
func eventHandler(log *logger.Logger, sink DeltaSink) kafka.MessageHandler {
	return func(_ context.Context, msg kafka.Message) error {
		var payload availability.UpdatePayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Warn("dropping malformed operator event", "topic", msg.Topic, "error", err)
			return nil
		}
		sailingID := payload.SailingID()
		if sailingID == "" {
			log.Warn("dropping operator event without sailing id", "topic", msg.Topic)
			return nil
		}

		delta := payload.Availability
		delta.Source = model.SourceExternal
		if delta.ChangeType == "" {
			delta.ChangeType = model.ChangeSync
		}

		sink(sailingID, delta)
		return nil
	}
}

// Run blocks consuming the feed until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.log.Info("operator availability feed started")
	return b.consumer.Start(ctx)
}

func (b *Bridge) Close() error {
	return b.consumer.Close()
}
