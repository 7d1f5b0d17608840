package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	kafka_config "tourhub/pkg/kafka/config"
	"tourhub/pkg/logger"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group. Messages that still
// fail after retries go to the dead letter topic and are committed.
type Consumer struct {
	reader     messageReader
	dlqWriter  messageWriter
	topic      string
	groupID    string
	maxRetries int
	backoff    time.Duration
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if !cfg.Enabled() {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	if cfg.ConsumerGroupID == "" {
		return nil, errors.New("group ID cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.ConsumerGroupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		CommitInterval:    cfg.ConsumerCommitInterval,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		ErrorLogger:       errorLogger(log, "consumer"),
	})

	c := newConsumer(reader, topic, cfg.ConsumerGroupID, cfg.ConsumerMaxRetries, handler, log)
	if cfg.DLQTopic != "" {
		c.dlqWriter = newDLQWriter(cfg, cfg.DLQTopic, log)
	}
	return c, nil
}

func newConsumer(r messageReader, topic, groupID string, maxRetries int, handler MessageHandler, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:     r,
		topic:      topic,
		groupID:    groupID,
		maxRetries: maxRetries,
		backoff:    time.Second,
		handler:    handler,
		log:        log,
	}
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("failed to fetch kafka message", "topic", c.topic, "error", err)
			if !sleepCtx(ctx, c.backoff) {
				return ctx.Err()
			}
			continue
		}

		if err := c.process(ctx, fromKafkaMessage(km)); err != nil {
			c.log.Error("kafka message dropped",
				"topic", km.Topic,
				"partition", km.Partition,
				"offset", km.Offset,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			c.log.Warn("failed to commit kafka offset", "topic", km.Topic, "offset", km.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg Message) error {
	c.mu.RLock()
	chain := c.middleware
	c.mu.RUnlock()

	handler := c.handler
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}
		if !ShouldRetry(err, msg.RetryCount(), c.maxRetries) {
			c.deadLetter(ctx, msg, err)
			return err
		}
		msg.IncrementRetryCount()
		c.log.Warn("retrying kafka message",
			"event_id", msg.EventID(),
			"attempt", msg.RetryCount(),
			"max_retries", c.maxRetries,
			"error", err,
		)
		if !sleepCtx(ctx, c.backoff*time.Duration(msg.RetryCount())) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message, cause error) {
	if c.dlqWriter == nil {
		return
	}
	if err := c.dlqWriter.WriteMessages(ctx, dlqMessage(msg, cause, c.groupID)); err != nil {
		c.log.Error("failed to write message to dead letter topic",
			"event_id", msg.EventID(),
			"error", err,
			"cause", cause,
		)
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

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
