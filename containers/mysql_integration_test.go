//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMySQLConfig_StartupTimeout(t *testing.T) {
	t.Setenv("CDCTEST_STARTUP_TIMEOUT", "2m")

	cfg := DefaultMySQLConfig()
	assert.Equal(t, 2*time.Minute, cfg.StartupTimeout, "startup timeout should come from the environment settings")
}

// TestMySQLContainer_RootCredentials verifies root authenticates with the
// configured root password. The binlog connector registers as root, so a
// container whose root password differs from the config breaks every
// MySQL connector registration.
func TestMySQLContainer_RootCredentials(t *testing.T) {
	ctx := context.Background()

	mysqlC, err := NewMySQLContainer(ctx, nil, nil)
	require.NoError(t, err, "failed to create MySQL container")
	defer func() {
		assert.NoError(t, mysqlC.Terminate(context.Background()), "failed to terminate container")
	}()

	host, err := mysqlC.GetHost(ctx)
	require.NoError(t, err, "failed to get container host")
	port, err := mysqlC.GetPort(ctx)
	require.NoError(t, err, "failed to get mapped port")

	cfg := DefaultMySQLConfig()

	t.Run("root authenticates with the configured password", func(t *testing.T) {
		dsn := fmt.Sprintf("root:%s@tcp(%s)/%s", cfg.RootPassword,
			net.JoinHostPort(host, strconv.Itoa(port)), cfg.Database)
		rootDB, err := sql.Open("mysql", dsn)
		require.NoError(t, err, "failed to open root connection")
		defer func() { _ = rootDB.Close() }()

		require.NoError(t, rootDB.PingContext(ctx), "root login must work with RootPassword")
	})

	t.Run("connector config carries root credentials", func(t *testing.T) {
		connCfg := mysqlC.ConnectorConfig("inventory")
		assert.Equal(t, "root", connCfg.Get("database.user"))
		assert.Equal(t, cfg.RootPassword, connCfg.Get("database.password"))
		assert.Equal(t, MySQLAlias, connCfg.Get("database.hostname"))
	})
}
