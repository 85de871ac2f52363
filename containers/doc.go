// Package containers provides testcontainer management for CDC connector
// integration tests.
//
// This package offers helpers for starting and managing the Docker
// containers a change-data-capture test needs, using testcontainers-go:
//
//   - Kafka broker containers (KRaft, confluent-local distribution)
//   - Kafka Connect runtime containers with the Debezium connectors installed
//   - Postgres source database containers (logical decoding enabled)
//   - MySQL source database containers (row-format binlog)
//
// Containers that must talk to each other (broker, Connect runtime, source
// database) join a shared Docker network created with NewNetwork and reach
// each other through fixed aliases (KafkaAlias, ConnectAlias and so on).
// Host-side test code uses the mapped endpoints instead.
//
// Container Lifecycle:
//
// Containers are typically managed using TestMain in integration test
// packages:
//
//	var kafka *containers.KafkaContainer
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    net, err := containers.NewNetwork(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    kafka, err = containers.NewKafkaContainer(ctx, net, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = kafka.Terminate(ctx)
//	    _ = net.Remove(ctx)
//	    os.Exit(code)
//	}
//
// Build Tags:
//
// Integration tests using this package should use the "integration" build
// tag:
//
//	//go:build integration
//
// Every run starts fresh containers on a fresh network. Share them across
// a package's tests through TestMain rather than per-test setup; the
// containers are the expensive part, not the tests.
package containers
