package containers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForHTTP_Succeeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First probe sees 503, the retry sees 200
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := WaitForHTTP(context.Background(), srv.URL, 10*time.Second)
	require.NoError(t, err, "endpoint should become ready")
	assert.GreaterOrEqual(t, hits.Load(), int32(2), "should have retried past the 503")
}

func TestWaitForHTTP_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := WaitForHTTP(context.Background(), srv.URL, 1200*time.Millisecond)
	require.Error(t, err, "endpoint never becomes ready")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForTCP_Succeeds(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to open listener")
	defer func() { _ = listener.Close() }()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok, "listener address should be TCP")

	err = WaitForTCP(context.Background(), "127.0.0.1", addr.Port, 5*time.Second)
	assert.NoError(t, err, "open port should be detected")
}

func TestWaitForTCP_Timeout(t *testing.T) {
	// Find a port that is free and keep it closed
	port, err := GetFreePort()
	require.NoError(t, err, "failed to find free port")

	err = WaitForTCP(context.Background(), "127.0.0.1", port, 1200*time.Millisecond)
	require.Error(t, err, "closed port should time out")
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}

func TestRetryWithBackoff_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, 10*time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should stop retrying after first success")
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("always fails")
	attempts := 0

	err := RetryWithBackoff(context.Background(), 4, time.Millisecond, 5*time.Millisecond, func() error {
		attempts++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.ErrorIs(t, err, sentinel, "last error should be preserved in the chain")
	assert.Contains(t, err.Error(), "max attempts (4)")
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := RetryWithBackoff(ctx, 10, 50*time.Millisecond, time.Second, func() error {
		attempts++
		cancel()
		return errors.New("fail so the backoff wait runs")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation should stop further attempts")
}

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)
	assert.Positive(t, port)
	assert.True(t, PortIsAvailable(port), "freshly assigned port should be bindable")
}

func TestPortIsAvailable_BoundPort(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)

	assert.False(t, PortIsAvailable(addr.Port), "bound port should not be available")
}

func TestIsValidTableName(t *testing.T) {
	valid := []string{"orders", "order_items", "_staging", "$tmp", "t1"}
	for _, name := range valid {
		assert.True(t, isValidTableName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "1orders", "orders; DROP TABLE users", "a-b", `a"b`, "a b"}
	for _, name := range invalid {
		assert.False(t, isValidTableName(name), "expected %q to be invalid", name)
	}
}
