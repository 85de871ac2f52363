//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/quietstream/cdctest/conf"
	"github.com/quietstream/cdctest/connector"
)

// postgresPort is the server port inside the container.
const postgresPort = 5432

// PostgresContainer wraps a testcontainers Postgres instance prepared for
// logical-decoding CDC connectors.
type PostgresContainer struct {
	container *postgres.PostgresContainer
	db        *sql.DB
	dsn       string
	config    PostgresConfig
}

// PostgresConfig holds configuration for Postgres container creation.
type PostgresConfig struct {
	// Database name (default: "cdctest")
	Database string
	// Username (default: "postgres"; the connector needs replication
	// privileges, which the superuser has)
	Username string
	// Password (default: "postgres")
	Password string
	// Image reference (default: conf.DefaultPostgresImage, which has
	// wal_level=logical preconfigured)
	Image string
	// Scripts to execute on startup (paths to .sql files)
	InitScripts []string
	// StartupTimeout for server readiness (default: conf setting)
	StartupTimeout time.Duration
}

// DefaultPostgresConfig returns a PostgresConfig built from the
// environment settings.
func DefaultPostgresConfig() PostgresConfig {
	settings := conf.MustLoad()
	return PostgresConfig{
		Database:       "cdctest",
		Username:       "postgres",
		Password:       "postgres",
		Image:          settings.Images.Postgres,
		StartupTimeout: settings.StartupTimeout.Std(),
	}
}

// NewPostgresContainer creates and starts a Postgres container attached to
// dockerNet under the PostgresAlias. If config is nil, uses
// DefaultPostgresConfig().
func NewPostgresContainer(ctx context.Context, dockerNet *testcontainers.DockerNetwork, config *PostgresConfig) (*PostgresContainer, error) {
	if config == nil {
		defaultCfg := DefaultPostgresConfig()
		config = &defaultCfg
	}

	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithImage(config.Image),
		postgres.WithDatabase(config.Database),
		postgres.WithUsername(config.Username),
		postgres.WithPassword(config.Password),
		// The postgres module does not wait on its own; the server logs
		// readiness twice (once during initdb restart).
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(config.StartupTimeout)),
	}
	for _, script := range config.InitScripts {
		opts = append(opts, postgres.WithInitScripts(script))
	}
	if dockerNet != nil {
		opts = append(opts, withAlias(dockerNet, PostgresAlias))
	}

	pgContainer, err := postgres.RunContainer(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start Postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		// Use background context for cleanup to ensure it succeeds even if parent ctx expired
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresContainer{
		container: pgContainer,
		db:        db,
		dsn:       connStr,
		config:    *config,
	}, nil
}

// DB returns the database connection. It is shared across tests in the
// same package and should not be closed by individual tests. Returns nil
// if the connection was not established.
func (c *PostgresContainer) DB() *sql.DB {
	return c.db
}

// GetDSN returns the host-side connection string for the container.
func (c *PostgresContainer) GetDSN() string {
	return c.dsn
}

// GetHost returns the host address where the container is accessible.
func (c *PostgresContainer) GetHost(ctx context.Context) (string, error) {
	return c.container.Host(ctx)
}

// GetPort returns the mapped port where Postgres is accessible.
func (c *PostgresContainer) GetPort(ctx context.Context) (int, error) {
	mappedPort, err := c.container.MappedPort(ctx, "5432")
	if err != nil {
		return 0, err
	}
	return mappedPort.Int(), nil
}

// ConnectorConfig returns a connector configuration pointing a Debezium
// Postgres connector at this container through its in-network alias.
func (c *PostgresContainer) ConnectorConfig(topicPrefix string) *connector.Configuration {
	return connector.ForPostgres(connector.Database{
		Hostname:    PostgresAlias,
		Port:        postgresPort,
		User:        c.config.Username,
		Password:    c.config.Password,
		Name:        c.config.Database,
		TopicPrefix: topicPrefix,
	})
}

// HealthCheck performs a health check on the Postgres database.
func (c *PostgresContainer) HealthCheck(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("health check returned unexpected result: %d", result)
	}

	return nil
}

// Reset truncates the given tables, restarting identity columns, so tests
// start from a clean slate. Table names are validated against Postgres
// identifier rules before any query runs.
func (c *PostgresContainer) Reset(ctx context.Context, tables []string) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	for _, table := range tables {
		if !isValidTableName(table) {
			return fmt.Errorf("invalid table name: %s", table)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		// Identifier already validated; quote it for safety
		query := fmt.Sprintf(`TRUNCATE TABLE %q RESTART IDENTITY CASCADE`, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ExecuteScript executes a SQL script file against the database.
func (c *PostgresContainer) ExecuteScript(ctx context.Context, scriptPath string) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	//nolint:gosec // G304: File path is intentionally provided by caller for SQL script execution
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script file: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}

	return nil
}

// Terminate stops and removes the Postgres container. It also closes the
// database connection if open.
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			fmt.Printf("Warning: failed to close database connection: %v\n", err)
		}
		c.db = nil
	}

	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}

	return nil
}
