package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"ferryline/pkg/logger"
)

var ErrConsumerClosed = errors.New("kafka consumer is closed")

// Message is the transport-agnostic view handed to handlers.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

type MessageHandler func(ctx context.Context, msg Message) error

type Config struct {
	Brokers        []string
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.MinBytes == 0 {
		out.MinBytes = 1
	}
	if out.MaxBytes == 0 {
		out.MaxBytes = 10 << 20
	}
	if out.MaxWait == 0 {
		out.MaxWait = 500 * time.Millisecond
	}
	return &out
}

// Consumer wraps a kafka-go reader with at-least-once semantics:
// offsets commit only after the handler returns nil. Handler errors are
// logged and the message is skipped rather than redelivered forever.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewConsumer(cfg *Config, topic, groupID string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	cfg = cfg.withDefaults()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		Logger:         kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("kafka reader", "message", fmt.Sprintf(msg, args...))
		}),
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		log:     log.WithComponent("kafka-consumer"),
	}, nil
}

// Start consumes until ctx is cancelled or the consumer is closed.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.log.Error("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		msg := Message{
			Topic:     kafkaMsg.Topic,
			Key:       kafkaMsg.Key,
			Value:     kafkaMsg.Value,
			Timestamp: kafkaMsg.Time,
		}
		if err := c.handler(ctx, msg); err != nil {
			c.log.Error("handler failed, skipping message",
				"topic", msg.Topic, "offset", kafkaMsg.Offset, "error", err)
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			c.log.Error("failed to commit offset", "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.reader.Close()
	c.wg.Wait()
	return err
}
