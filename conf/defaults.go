package conf

import "time"

// Default container images. The Kafka image must stay compatible with the
// testcontainers kafka module, which expects a confluent-local (KRaft)
// distribution. The Postgres image ships with wal_level=logical so logical
// decoding connectors work without extra server configuration.
const (
	DefaultKafkaImage    = "confluentinc/confluent-local:7.5.0"
	DefaultConnectImage  = "debezium/connect:2.7.3.Final"
	DefaultPostgresImage = "debezium/postgres:15-alpine"
	DefaultMySQLImage    = "mysql:8.0"
)

// defaultStartupTimeout bounds container readiness waits. Pulling images on
// a cold CI runner dominates this, not the processes themselves.
const defaultStartupTimeout = 90 * time.Second
