package connector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_With(t *testing.T) {
	cfg := New().
		With("connector.class", "io.debezium.connector.postgresql.PostgresConnector").
		With("tasks.max", "1")

	assert.Equal(t, "1", cfg.Get("tasks.max"))
	assert.True(t, cfg.Has("connector.class"))
	assert.False(t, cfg.Has("database.hostname"))

	// With overwrites
	cfg.With("tasks.max", "2")
	assert.Equal(t, "2", cfg.Get("tasks.max"))
}

func TestConfiguration_WithAll(t *testing.T) {
	cfg := New().With("a", "1")
	cfg.WithAll(map[string]string{"a": "overwritten", "b": "2"})

	assert.Equal(t, "overwritten", cfg.Get("a"))
	assert.Equal(t, "2", cfg.Get("b"))
	assert.Equal(t, []string{"a", "b"}, cfg.Keys())
}

func TestConfiguration_PropertiesIsACopy(t *testing.T) {
	cfg := New().With("a", "1")

	props := cfg.Properties()
	props["a"] = "mutated"

	assert.Equal(t, "1", cfg.Get("a"), "mutating the returned map must not affect the configuration")
}

func TestForPostgres(t *testing.T) {
	cfg := ForPostgres(Database{
		Hostname:    "postgres",
		Port:        5432,
		User:        "postgres",
		Password:    "secret",
		Name:        "inventory",
		TopicPrefix: "dbserver1",
	})

	assert.Equal(t, "io.debezium.connector.postgresql.PostgresConnector", cfg.Get("connector.class"))
	assert.Equal(t, "postgres", cfg.Get("database.hostname"))
	assert.Equal(t, "5432", cfg.Get("database.port"))
	assert.Equal(t, "inventory", cfg.Get("database.dbname"))
	assert.Equal(t, "dbserver1", cfg.Get("topic.prefix"))
	assert.Equal(t, "pgoutput", cfg.Get("plugin.name"))
}

func TestForMySQL(t *testing.T) {
	cfg := ForMySQL(Database{
		Hostname:    "mysql",
		Port:        3306,
		User:        "root",
		Password:    "test",
		Name:        "inventory",
		TopicPrefix: "dbserver2",
	})

	assert.Equal(t, "io.debezium.connector.mysql.MySqlConnector", cfg.Get("connector.class"))
	assert.Equal(t, "inventory", cfg.Get("database.include.list"))
	assert.NotEmpty(t, cfg.Get("database.server.id"), "binlog clients need a server id")
	assert.Equal(t, "_schema_history.dbserver2", cfg.Get("schema.history.internal.kafka.topic"))
}

func TestMarshalRegistration(t *testing.T) {
	cfg := New().
		With("connector.class", "io.debezium.connector.postgresql.PostgresConnector").
		With("database.hostname", "postgres")

	body, err := cfg.MarshalRegistration("inventory-connector")
	require.NoError(t, err)

	var doc struct {
		Name   string            `json:"name"`
		Config map[string]string `json:"config"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "inventory-connector", doc.Name)
	assert.Equal(t, "postgres", doc.Config["database.hostname"])
}

func TestMarshalRegistration_Validation(t *testing.T) {
	cfg := New().With("connector.class", "x")

	_, err := cfg.MarshalRegistration("")
	require.Error(t, err, "empty name must be rejected")

	_, err = New().MarshalRegistration("some-name")
	require.Error(t, err, "empty configuration must be rejected")
}
