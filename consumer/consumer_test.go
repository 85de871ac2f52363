package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain guards against leaked reader goroutines; a Watcher left open
// keeps fetch loops alive against a broker that may already be terminated.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{Topic: "dbserver1.public.customers"})
	require.Error(t, err, "brokers are required")

	_, err = NewWatcher(WatcherConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err, "topic is required")
}

func TestNewWatcher_CloseWithoutRead(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "dbserver1.public.customers",
	})
	require.NoError(t, err)

	// No read ever happened, so no connection was dialed; Close must
	// still be safe.
	assert.NoError(t, w.Close())
}

func TestProduce_Validation(t *testing.T) {
	err := Produce(t.Context(), nil, "topic")
	require.Error(t, err, "brokers are required")

	err = Produce(t.Context(), []string{"localhost:9092"}, "")
	require.Error(t, err, "topic is required")
}
