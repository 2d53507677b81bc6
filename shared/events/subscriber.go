package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Handler func(ctx context.Context, event Event) error

type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	maxDeliveries int

	// delivery attempts per message ID; only touched by the Start loop
	attempts map[string]int
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	// MaxDeliveries is how many times a failing message is handled before it
	// is acknowledged and dropped.
	MaxDeliveries int
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.MaxDeliveries <= 0 {
		config.MaxDeliveries = 5
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		maxDeliveries: config.MaxDeliveries,
		attempts:      make(map[string]int),
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.ensureGroup(ctx); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{"stream": s.stream, "group": s.group, "consumer": s.consumer})
	logger.Info("Subscriber started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Subscriber stopping")
			return ctx.Err()
		default:
			if err := s.readMessages(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.WithError(err).Error("Error reading messages")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// ensureGroup creates the consumer group if it doesn't exist.
func (s *Subscriber) ensureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// readMessages retries this consumer's pending entries, then waits for new ones.
func (s *Subscriber) readMessages(ctx context.Context) error {
	if err := s.read(ctx, "0", -1); err != nil {
		return err
	}
	return s.read(ctx, ">", s.blockDuration)
}

func (s *Subscriber) read(ctx context.Context, id string, block time.Duration) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    block,
	}).Result()

	if err == redis.Nil {
		return nil // No messages
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			s.handle(ctx, message)
		}
	}

	return nil
}

// handle processes one message and acknowledges it unless it failed and still
// has deliveries left, in which case it stays pending for the next read.
func (s *Subscriber) handle(ctx context.Context, message redis.XMessage) {
	entry := log.WithField("message", message.ID)
	if err := s.processMessage(ctx, message); err != nil {
		s.attempts[message.ID]++
		if n := s.attempts[message.ID]; n < s.maxDeliveries {
			entry.WithError(err).WithField("attempt", n).Warn("Failed to process message, will retry")
			return
		}
		entry.WithError(err).WithField("attempts", s.maxDeliveries).Error("Dropping message after repeated failures")
	}
	delete(s.attempts, message.ID)

	if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
		entry.WithError(err).Warn("Failed to ACK message")
	}
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return s.handler(ctx, event)
}
