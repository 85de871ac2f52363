//go:build integration

package containers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/quietstream/cdctest/conf"
)

// kafkaInternalPort is the listener the broker exposes to other containers
// on the shared network.
const kafkaInternalPort = 9092

// KafkaContainer wraps a testcontainers Kafka (KRaft) broker instance with
// helper methods for CDC tests.
type KafkaContainer struct {
	container *kafka.KafkaContainer
	brokers   []string
}

// KafkaConfig holds configuration for Kafka container creation.
type KafkaConfig struct {
	// Image reference (default: conf.DefaultKafkaImage)
	Image string
	// ClusterID for the KRaft quorum (default: "cdctest-cluster")
	ClusterID string
	// StartupTimeout for broker readiness (default: conf setting)
	StartupTimeout time.Duration
}

// DefaultKafkaConfig returns a KafkaConfig built from the environment
// settings.
func DefaultKafkaConfig() KafkaConfig {
	settings := conf.MustLoad()
	return KafkaConfig{
		Image:          settings.Images.Kafka,
		ClusterID:      "cdctest-cluster",
		StartupTimeout: settings.StartupTimeout.Std(),
	}
}

// NewKafkaContainer creates and starts a Kafka broker container attached
// to net under the KafkaAlias. If config is nil, uses
// DefaultKafkaConfig().
func NewKafkaContainer(ctx context.Context, dockerNet *testcontainers.DockerNetwork, config *KafkaConfig) (*KafkaContainer, error) {
	if config == nil {
		defaultCfg := DefaultKafkaConfig()
		config = &defaultCfg
	}

	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithImage(config.Image),
		kafka.WithClusterID(config.ClusterID),
	}
	if dockerNet != nil {
		opts = append(opts, withAlias(dockerNet, KafkaAlias))
	}

	startCtx := ctx
	if config.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, config.StartupTimeout)
		defer cancel()
	}

	// kafka.RunContainer waits for the broker itself; the health check
	// below additionally verifies the mapped listener from the host side.
	kafkaContainer, err := kafka.RunContainer(startCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start Kafka container: %w", err)
	}

	brokers, err := kafkaContainer.Brokers(ctx)
	if err != nil {
		// Use background context for cleanup to ensure it succeeds even if parent ctx expired
		_ = kafkaContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get broker addresses: %w", err)
	}

	kc := &KafkaContainer{
		container: kafkaContainer,
		brokers:   brokers,
	}

	if err := kc.HealthCheck(ctx); err != nil {
		_ = kafkaContainer.Terminate(context.Background())
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	return kc, nil
}

// Brokers returns the host-side bootstrap addresses for the broker.
func (c *KafkaContainer) Brokers() []string {
	return c.brokers
}

// InternalBootstrap returns the bootstrap address other containers on the
// shared network use, e.g. for a Connect runtime's BOOTSTRAP_SERVERS.
func (c *KafkaContainer) InternalBootstrap() string {
	return net.JoinHostPort(KafkaAlias, strconv.Itoa(kafkaInternalPort))
}

// HealthCheck verifies the broker answers metadata requests on the mapped
// listener.
func (c *KafkaContainer) HealthCheck(ctx context.Context) error {
	if len(c.brokers) == 0 {
		return fmt.Errorf("no broker addresses available")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker %s: %w", c.brokers[0], err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("broker metadata request failed: %w", err)
	}

	return nil
}

// CreateTopic creates a topic with the given partition count ahead of a
// test. Connectors auto-create their topics; this is for tests that need
// deterministic partitioning.
func (c *KafkaContainer) CreateTopic(ctx context.Context, topic string, partitions int) error {
	if len(c.brokers) == 0 {
		return fmt.Errorf("no broker addresses available")
	}

	conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find controller: %w", err)
	}

	controllerConn, err := kafkago.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer func() { _ = controllerConn.Close() }()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}

	return nil
}

// Terminate stops and removes the Kafka container.
func (c *KafkaContainer) Terminate(ctx context.Context) error {
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}
