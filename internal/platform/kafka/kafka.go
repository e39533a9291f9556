// Package kafka owns the broker connection for audit-event publishing.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"firmus/internal/platform/config"
)

// Client wraps the franz-go producer with topic bootstrap and health
// checking.
type Client struct {
	*kgo.Client
}

// New connects to the configured brokers. Returns nil if no brokers are
// configured (Kafka disabled); enrichment must work without a broker.
func New(ctx context.Context, cfg config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// EnsureTopic creates the topic if it does not exist yet. Idempotent:
// "already exists" is success.
func (c *Client) EnsureTopic(ctx context.Context, topic string) error {
	adm := kadm.NewClient(c.Client)

	_, err := adm.CreateTopic(ctx, 1, -1, nil, topic)
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

// Health verifies broker reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}

// Close flushes pending records and closes the connection.
func (c *Client) Close() {
	c.Client.Close()
}
