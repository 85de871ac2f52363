//go:build integration

package containers

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
)

// Network aliases under which the pipeline containers reach each other on
// the shared Docker network. Connector configurations built by the source
// database containers use these as hostnames.
const (
	KafkaAlias    = "kafka"
	ConnectAlias  = "connect"
	PostgresAlias = "postgres"
	MySQLAlias    = "mysql"
)

// NewNetwork creates the Docker network the pipeline containers join.
// The caller owns the network and must Remove it after terminating the
// containers attached to it.
func NewNetwork(ctx context.Context) (*testcontainers.DockerNetwork, error) {
	net, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker network: %w", err)
	}
	return net, nil
}

// withAlias attaches a container to the shared network under the given
// alias.
func withAlias(net *testcontainers.DockerNetwork, alias string) testcontainers.CustomizeRequestOption {
	return network.WithNetwork([]string{alias}, net)
}
