//go:build integration

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"

	"github.com/quietstream/cdctest/connector"
	"github.com/quietstream/cdctest/consumer"
	"github.com/quietstream/cdctest/containers"
)

// Environment is a running CDC pipeline: shared network, Kafka broker,
// Connect runtime, and the source databases requested in Options.
type Environment struct {
	Network  *testcontainers.DockerNetwork
	Kafka    *containers.KafkaContainer
	Connect  *containers.ConnectContainer
	Postgres *containers.PostgresContainer
	MySQL    *containers.MySQLContainer

	cleanup *containers.CleanupManager
}

// Options selects which pieces the environment starts. Kafka and Connect
// are always started; at least one source database should be enabled for
// the environment to be useful.
type Options struct {
	// Kafka overrides the broker config (nil for defaults).
	Kafka *containers.KafkaConfig
	// Connect overrides the runtime config (nil for defaults).
	Connect *containers.ConnectConfig
	// Postgres starts a Postgres source when non-nil, or with
	// WithPostgres set.
	Postgres     *containers.PostgresConfig
	WithPostgres bool
	// MySQL starts a MySQL source when non-nil, or with WithMySQL set.
	MySQL     *containers.MySQLConfig
	WithMySQL bool
}

// New starts the environment. Containers start in dependency order and a
// failure at any point tears down everything already started.
func New(ctx context.Context, opts Options) (*Environment, error) {
	env := &Environment{cleanup: containers.NewCleanupManager()}

	fail := func(step string, err error) (*Environment, error) {
		if cleanupErr := env.cleanup.Cleanup(); cleanupErr != nil {
			return nil, fmt.Errorf("failed to start %s: %w (cleanup also failed: %v)", step, err, cleanupErr)
		}
		return nil, fmt.Errorf("failed to start %s: %w", step, err)
	}

	dockerNet, err := containers.NewNetwork(ctx)
	if err != nil {
		return fail("network", err)
	}
	env.Network = dockerNet
	env.cleanup.Add("network", func() error {
		return dockerNet.Remove(context.Background())
	})

	env.Kafka, err = containers.NewKafkaContainer(ctx, dockerNet, opts.Kafka)
	if err != nil {
		return fail("kafka", err)
	}
	env.cleanup.Add("kafka", func() error {
		return env.Kafka.Terminate(context.Background())
	})

	if opts.WithPostgres || opts.Postgres != nil {
		env.Postgres, err = containers.NewPostgresContainer(ctx, dockerNet, opts.Postgres)
		if err != nil {
			return fail("postgres", err)
		}
		env.cleanup.Add("postgres", func() error {
			return env.Postgres.Terminate(context.Background())
		})
	}

	if opts.WithMySQL || opts.MySQL != nil {
		env.MySQL, err = containers.NewMySQLContainer(ctx, dockerNet, opts.MySQL)
		if err != nil {
			return fail("mysql", err)
		}
		env.cleanup.Add("mysql", func() error {
			return env.MySQL.Terminate(context.Background())
		})
	}

	env.Connect, err = containers.NewConnectContainer(ctx, dockerNet, env.Kafka, opts.Connect)
	if err != nil {
		return fail("connect", err)
	}
	env.cleanup.Add("connect", func() error {
		return env.Connect.Terminate(context.Background())
	})

	return env, nil
}

// Terminate tears the environment down in reverse start order.
func (e *Environment) Terminate() error {
	return e.cleanup.Cleanup()
}

// UniqueName returns a connector or topic-prefix name that will not
// collide with those of other tests sharing the environment.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// RegisterConnector registers a connector and waits until it and its tasks
// report RUNNING.
func (e *Environment) RegisterConnector(ctx context.Context, name string, cfg *connector.Configuration) error {
	if err := e.Connect.RegisterConnector(ctx, name, cfg); err != nil {
		return err
	}
	return e.Connect.WaitForConnectorRunning(ctx, name, 60*time.Second)
}

// WatchTopic returns a Watcher consuming the given topic from the host
// side. The caller closes it.
func (e *Environment) WatchTopic(topic string) (*consumer.Watcher, error) {
	return consumer.NewWatcher(consumer.WatcherConfig{
		Brokers: e.Kafka.Brokers(),
		Topic:   topic,
	})
}
