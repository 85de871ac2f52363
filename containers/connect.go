//go:build integration

package containers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quietstream/cdctest/conf"
	"github.com/quietstream/cdctest/connector"
)

// connectRESTPort is the Connect REST API port inside the container.
const connectRESTPort = "8083/tcp"

// ConnectContainer wraps a Kafka Connect runtime container with the
// Debezium connectors installed.
type ConnectContainer struct {
	container testcontainers.Container
	endpoint  string
	client    *connector.Client
}

// ConnectConfig holds configuration for Connect container creation.
type ConnectConfig struct {
	// Image reference (default: conf.DefaultConnectImage)
	Image string
	// BootstrapServers the runtime connects to. Required; usually
	// KafkaContainer.InternalBootstrap().
	BootstrapServers string
	// GroupID for the Connect worker group (default: "cdctest-connect")
	GroupID string
	// TopicPrefix for the runtime's internal storage topics
	// (default: "_connect")
	TopicPrefix string
	// StartupTimeout for REST API readiness (default: conf setting)
	StartupTimeout time.Duration
}

// DefaultConnectConfig returns a ConnectConfig built from the environment
// settings. BootstrapServers must still be filled in by the caller.
func DefaultConnectConfig() ConnectConfig {
	settings := conf.MustLoad()
	return ConnectConfig{
		Image:          settings.Images.Connect,
		GroupID:        "cdctest-connect",
		TopicPrefix:    "_connect",
		StartupTimeout: settings.StartupTimeout.Std(),
	}
}

// NewConnectContainer creates and starts a Kafka Connect runtime container
// attached to dockerNet under the ConnectAlias. If config is nil, uses
// DefaultConnectConfig() with the broker's in-network bootstrap address.
func NewConnectContainer(ctx context.Context, dockerNet *testcontainers.DockerNetwork, broker *KafkaContainer, config *ConnectConfig) (*ConnectContainer, error) {
	if config == nil {
		defaultCfg := DefaultConnectConfig()
		config = &defaultCfg
	}
	if config.BootstrapServers == "" {
		if broker == nil {
			return nil, fmt.Errorf("bootstrap servers not set and no broker container given")
		}
		config.BootstrapServers = broker.InternalBootstrap()
	}

	req := testcontainers.ContainerRequest{
		Image:        config.Image,
		ExposedPorts: []string{connectRESTPort},
		Env: map[string]string{
			"BOOTSTRAP_SERVERS":    config.BootstrapServers,
			"GROUP_ID":             config.GroupID,
			"CONFIG_STORAGE_TOPIC": config.TopicPrefix + "_configs",
			"OFFSET_STORAGE_TOPIC": config.TopicPrefix + "_offsets",
			"STATUS_STORAGE_TOPIC": config.TopicPrefix + "_statuses",
			// Single-worker test runtime; the storage topics cannot have
			// more replicas than brokers.
			"CONFIG_STORAGE_REPLICATION_FACTOR": "1",
			"OFFSET_STORAGE_REPLICATION_FACTOR": "1",
			"STATUS_STORAGE_REPLICATION_FACTOR": "1",
		},
		WaitingFor: wait.ForHTTP("/connectors").
			WithPort(connectRESTPort).
			WithStartupTimeout(config.StartupTimeout),
	}

	genericReq := testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	}
	if dockerNet != nil {
		if err := withAlias(dockerNet, ConnectAlias).Customize(&genericReq); err != nil {
			return nil, fmt.Errorf("failed to attach to network: %w", err)
		}
	}

	container, err := testcontainers.GenericContainer(ctx, genericReq)
	if err != nil {
		return nil, fmt.Errorf("failed to start Connect container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		// Use background context for cleanup to ensure it succeeds even if parent ctx expired
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "8083")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	endpoint := fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(mappedPort.Int())))

	return &ConnectContainer{
		container: container,
		endpoint:  endpoint,
		client:    connector.NewClient(endpoint),
	}, nil
}

// APIEndpoint returns the host-side base URL of the Connect REST API.
func (c *ConnectContainer) APIEndpoint() string {
	return c.endpoint
}

// Client returns the REST client bound to this runtime.
func (c *ConnectContainer) Client() *connector.Client {
	return c.client
}

// RegisterConnector registers a connector under the given name and waits
// until the runtime acknowledges it. It does not wait for the tasks to
// reach RUNNING; use WaitForConnectorRunning for that.
func (c *ConnectContainer) RegisterConnector(ctx context.Context, name string, cfg *connector.Configuration) error {
	// The runtime answers 409 while the worker group is still rebalancing;
	// any other failure, such as an invalid configuration, is final.
	var permanent error
	err := RetryWithBackoff(ctx, 8, 500*time.Millisecond, 5*time.Second, func() error {
		err := c.client.Register(ctx, name, cfg)
		if err != nil && !connector.IsConflict(err) {
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return permanent
	}
	return err
}

// DeleteConnector removes a registered connector.
func (c *ConnectContainer) DeleteConnector(ctx context.Context, name string) error {
	return c.client.Delete(ctx, name)
}

// WaitForConnectorRunning blocks until the named connector and all its
// tasks report RUNNING, or the timeout elapses.
func (c *ConnectContainer) WaitForConnectorRunning(ctx context.Context, name string, timeout time.Duration) error {
	return c.client.WaitForRunning(ctx, name, timeout)
}

// HealthCheck verifies the REST API answers on the mapped port.
func (c *ConnectContainer) HealthCheck(ctx context.Context) error {
	return WaitForHTTP(ctx, c.endpoint+"/connectors", 5*time.Second)
}

// Terminate stops and removes the Connect container.
func (c *ConnectContainer) Terminate(ctx context.Context) error {
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}
