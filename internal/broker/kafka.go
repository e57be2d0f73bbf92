package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"order-sync/internal/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(NewWriter(brokers, topic))
}

// NewWriter creates a hash-balanced writer for one topic
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// NewProducerWithWriter creates a producer on top of any MessageWriter
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer, logger: util.GetLogger()}
}

// PublishEvent publishes an event to Kafka
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Time:  time.Now(),
	}

	err = p.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug("Published event", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", event)))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MessageReader is the part of kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RetryPolicy bounds how often a failing message is handled again before it
// is dead-lettered.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy gives a message six attempts over roughly half a minute.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      5,
	InitialInterval: time.Second,
	MaxInterval:     15 * time.Second,
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Consumer represents a Kafka consumer
type Consumer struct {
	reader     MessageReader
	topic      string
	deadLetter MessageWriter
	retry      RetryPolicy
	logger     *zap.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return NewConsumerWithReader(reader, topic)
}

// NewConsumerWithReader creates a consumer on top of any MessageReader
func NewConsumerWithReader(reader MessageReader, topic string) *Consumer {
	return &Consumer{
		reader: reader,
		topic:  topic,
		retry:  DefaultRetryPolicy,
		logger: util.GetLogger(),
	}
}

// WithDeadLetter sends messages that exhaust their retries to writer.
// Without one they are logged and dropped.
func (c *Consumer) WithDeadLetter(writer MessageWriter) *Consumer {
	c.deadLetter = writer
	return c
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func (c *Consumer) WithRetryPolicy(p RetryPolicy) *Consumer {
	c.retry = p
	return c
}

// Close closes the consumer and its dead-letter writer
func (c *Consumer) Close() error {
	err := c.reader.Close()
	if c.deadLetter != nil {
		if dlErr := c.deadLetter.Close(); err == nil {
			err = dlErr
		}
	}
	return err
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming starts consuming messages with a handler. A failing message
// is retried with exponential backoff; once the retries are spent, or the
// handler marks the error permanent, it goes to the dead-letter topic. The
// offset is committed only after one of the two, so a shutdown mid-retry
// leaves the message to be fetched again.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting Kafka consumer", zap.String("topic", c.topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled, stopping", zap.String("topic", c.topic))
			return ctx.Err()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("Error fetching message", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			if err := c.process(ctx, handler, msg); err != nil {
				c.logger.Info("Consumer stopped with message uncommitted",
					zap.String("topic", c.topic),
					zap.Int64("offset", msg.Offset))
				return err
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("Error committing message", zap.Error(err))
			}
		}
	}
}

// process returns nil once msg is handled or dead-lettered, and an error only
// when ctx ended first.
func (c *Consumer) process(ctx context.Context, handler MessageHandler, msg kafka.Message) error {
	attempt := 0
	op := func() error {
		attempt++
		return handler(ctx, msg)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Message handling failed, retrying",
			zap.String("key", string(msg.Key)),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.retry.backOff(), c.retry.MaxRetries), ctx)
	err := backoff.RetryNotify(op, b, notify)
	if err == nil {
		util.ConsumedMessagesTotal.WithLabelValues(c.topic, "handled").Inc()
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.logger.Error("Error handling message",
		zap.String("key", string(msg.Key)),
		zap.Int64("offset", msg.Offset),
		zap.Int("attempts", attempt),
		zap.Error(err))
	return c.sendToDeadLetter(ctx, msg, err)
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	if c.deadLetter == nil {
		util.ConsumedMessagesTotal.WithLabelValues(c.topic, "dropped").Inc()
		c.logger.Error("Dropping message, no dead-letter topic configured",
			zap.String("key", string(msg.Key)),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("value", msg.Value))
		return nil
	}

	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "x-source-topic", Value: []byte(c.topic)},
		kafka.Header{Key: "x-source-partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "x-source-offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "x-error", Value: []byte(cause.Error())},
	)
	dead := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers, Time: time.Now()}

	// the partition stays blocked until the dead letter is written
	write := func() error { return c.deadLetter.WriteMessages(ctx, dead) }
	notify := func(err error, wait time.Duration) {
		c.logger.Error("Dead-letter write failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(write, backoff.WithContext(c.retry.backOff(), ctx), notify); err != nil {
		return err
	}
	util.ConsumedMessagesTotal.WithLabelValues(c.topic, "dead_lettered").Inc()
	return nil
}
