// Package connector provides the configuration builder and REST client
// for registering CDC connectors with a Kafka Connect runtime.
package connector

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Connector class names for the supported source databases.
const (
	postgresConnectorClass = "io.debezium.connector.postgresql.PostgresConnector"
	mysqlConnectorClass    = "io.debezium.connector.mysql.MySqlConnector"
)

// Configuration is a fluent builder for the key/value properties of a
// connector. The zero value is not usable; start from New, ForPostgres or
// ForMySQL.
type Configuration struct {
	props map[string]string
}

// New returns an empty Configuration.
func New() *Configuration {
	return &Configuration{props: make(map[string]string)}
}

// Database describes a source database for the ForPostgres and ForMySQL
// constructors. Hostname and Port must be reachable from the Connect
// runtime, i.e. in-network alias and container-internal port, not the
// host-side mapping.
type Database struct {
	Hostname    string
	Port        int
	User        string
	Password    string
	Name        string
	TopicPrefix string
}

// ForPostgres returns a Configuration for the Debezium Postgres connector
// with the common properties filled in. Further properties can be chained
// with With.
func ForPostgres(db Database) *Configuration {
	return New().
		With("connector.class", postgresConnectorClass).
		With("database.hostname", db.Hostname).
		With("database.port", strconv.Itoa(db.Port)).
		With("database.user", db.User).
		With("database.password", db.Password).
		With("database.dbname", db.Name).
		With("topic.prefix", db.TopicPrefix).
		With("plugin.name", "pgoutput")
}

// ForMySQL returns a Configuration for the Debezium MySQL connector with
// the common properties filled in. The server id only needs to be unique
// among the replication clients of this throwaway database. The schema
// history bootstrap assumes the broker's default network alias; override
// it with With for a custom topology.
func ForMySQL(db Database) *Configuration {
	return New().
		With("connector.class", mysqlConnectorClass).
		With("database.hostname", db.Hostname).
		With("database.port", strconv.Itoa(db.Port)).
		With("database.user", db.User).
		With("database.password", db.Password).
		With("database.include.list", db.Name).
		With("topic.prefix", db.TopicPrefix).
		With("database.server.id", "184054").
		With("schema.history.internal.kafka.bootstrap.servers", "kafka:9092").
		With("schema.history.internal.kafka.topic", "_schema_history."+db.TopicPrefix)
}

// With sets a property and returns the Configuration for chaining.
func (c *Configuration) With(key, value string) *Configuration {
	c.props[key] = value
	return c
}

// WithAll sets every property from m, overwriting existing keys.
func (c *Configuration) WithAll(m map[string]string) *Configuration {
	for k, v := range m {
		c.props[k] = v
	}
	return c
}

// Get returns the value for key, or the empty string if unset.
func (c *Configuration) Get(key string) string {
	return c.props[key]
}

// Has reports whether key is set.
func (c *Configuration) Has(key string) bool {
	_, ok := c.props[key]
	return ok
}

// Keys returns the property names in sorted order.
func (c *Configuration) Keys() []string {
	keys := make([]string, 0, len(c.props))
	for k := range c.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Properties returns a copy of the property map.
func (c *Configuration) Properties() map[string]string {
	out := make(map[string]string, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out
}

// registration is the document the Connect REST API expects on
// POST /connectors.
type registration struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// MarshalRegistration renders the registration document for the given
// connector name.
func (c *Configuration) MarshalRegistration(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("connector name must not be empty")
	}
	if len(c.props) == 0 {
		return nil, fmt.Errorf("connector configuration is empty")
	}
	return json.Marshal(registration{Name: name, Config: c.props})
}
