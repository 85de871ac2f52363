//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/quietstream/cdctest/conf"
	"github.com/quietstream/cdctest/connector"
)

// mysqlPort is the server port inside the container.
const mysqlPort = 3306

// MySQLContainer wraps a testcontainers MySQL instance prepared for
// binlog-based CDC connectors. MySQL 8 enables the row-format binlog by
// default, so the stock image works without a custom my.cnf.
type MySQLContainer struct {
	container *mysql.MySQLContainer
	db        *sql.DB
	dsn       string
	config    MySQLConfig
}

// MySQLConfig holds configuration for MySQL container creation.
type MySQLConfig struct {
	// Database name (default: "cdctest")
	Database string
	// Root password (default: "test"). The connector registers as root
	// because it needs RELOAD and REPLICATION privileges.
	RootPassword string
	// Username for non-root user (default: "testuser")
	Username string
	// Password for non-root user (default: "testpass")
	Password string
	// Image reference (default: conf.DefaultMySQLImage)
	Image string
	// Scripts to execute on startup (paths to .sql files)
	InitScripts []string
	// StartupTimeout for server readiness (default: conf setting)
	StartupTimeout time.Duration
}

// DefaultMySQLConfig returns a MySQLConfig built from the environment
// settings.
func DefaultMySQLConfig() MySQLConfig {
	settings := conf.MustLoad()
	return MySQLConfig{
		Database:       "cdctest",
		RootPassword:   "test",
		Username:       "testuser",
		Password:       "testpass",
		Image:          settings.Images.MySQL,
		StartupTimeout: settings.StartupTimeout.Std(),
	}
}

// NewMySQLContainer creates and starts a MySQL container attached to
// dockerNet under the MySQLAlias. If config is nil, uses
// DefaultMySQLConfig().
func NewMySQLContainer(ctx context.Context, dockerNet *testcontainers.DockerNetwork, config *MySQLConfig) (*MySQLContainer, error) {
	if config == nil {
		defaultCfg := DefaultMySQLConfig()
		config = &defaultCfg
	}

	opts := []testcontainers.ContainerCustomizer{
		testcontainers.WithImage(config.Image),
		mysql.WithDatabase(config.Database),
		mysql.WithUsername(config.Username),
		mysql.WithPassword(config.Password),
		// The mysql module otherwise reuses the non-root password for root;
		// the connector authenticates as root with RootPassword.
		testcontainers.WithEnv(map[string]string{
			"MYSQL_ROOT_PASSWORD": config.RootPassword,
		}),
	}
	for _, script := range config.InitScripts {
		opts = append(opts, mysql.WithScripts(script))
	}
	if dockerNet != nil {
		opts = append(opts, withAlias(dockerNet, MySQLAlias))
	}

	startCtx := ctx
	if config.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, config.StartupTimeout)
		defer cancel()
	}

	// mysql.RunContainer already handles waiting for the server to be ready
	mysqlContainer, err := mysql.RunContainer(startCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	// multiStatements so ExecuteScript can run whole .sql files
	connStr, err := mysqlContainer.ConnectionString(ctx, "multiStatements=true")
	if err != nil {
		// Use background context for cleanup to ensure it succeeds even if parent ctx expired
		_ = mysqlContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sql.Open("mysql", connStr)
	if err != nil {
		_ = mysqlContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = mysqlContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLContainer{
		container: mysqlContainer,
		db:        db,
		dsn:       connStr,
		config:    *config,
	}, nil
}

// DB returns the database connection. It is shared across tests in the
// same package and should not be closed by individual tests. Returns nil
// if the connection was not established.
func (c *MySQLContainer) DB() *sql.DB {
	return c.db
}

// GetDSN returns the MySQL DSN (connection string) for the container.
func (c *MySQLContainer) GetDSN() string {
	return c.dsn
}

// GetHost returns the host address where the container is accessible.
func (c *MySQLContainer) GetHost(ctx context.Context) (string, error) {
	return c.container.Host(ctx)
}

// GetPort returns the mapped port where MySQL is accessible.
func (c *MySQLContainer) GetPort(ctx context.Context) (int, error) {
	mappedPort, err := c.container.MappedPort(ctx, "3306")
	if err != nil {
		return 0, err
	}
	return mappedPort.Int(), nil
}

// ConnectorConfig returns a connector configuration pointing a Debezium
// MySQL connector at this container through its in-network alias. The
// connector registers as root; the module's generated non-root user lacks
// the replication grants the binlog reader needs.
func (c *MySQLContainer) ConnectorConfig(topicPrefix string) *connector.Configuration {
	return connector.ForMySQL(connector.Database{
		Hostname:    MySQLAlias,
		Port:        mysqlPort,
		User:        "root",
		Password:    c.config.RootPassword,
		Name:        c.config.Database,
		TopicPrefix: topicPrefix,
	})
}

// HealthCheck performs a health check on the MySQL database.
func (c *MySQLContainer) HealthCheck(ctx context.Context) error {
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

// Reset truncates all given tables with foreign key checks disabled. This
// is useful for resetting state between tests.
func (c *MySQLContainer) Reset(ctx context.Context, tables []string) error {
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

	if _, err := tx.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return fmt.Errorf("failed to disable foreign key checks: %w", err)
	}

	for _, table := range tables {
		// Names already validated; backticks for identifier quoting
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE `%s`", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
		return fmt.Errorf("failed to enable foreign key checks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ExecuteScript executes a SQL script file against the database.
func (c *MySQLContainer) ExecuteScript(ctx context.Context, scriptPath string) error {
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

// Terminate stops and removes the MySQL container. It also closes the
// database connection if open.
func (c *MySQLContainer) Terminate(ctx context.Context) error {
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
