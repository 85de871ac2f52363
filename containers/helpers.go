package containers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// pollInterval is how often the Wait* helpers re-check their condition.
const pollInterval = 500 * time.Millisecond

// WaitForHTTP waits for an HTTP endpoint to respond with a 200 status code.
// It retries every 500ms until the endpoint is ready, the timeout is
// reached, or ctx is cancelled. Connect's REST API is the usual target.
func WaitForHTTP(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{
		Timeout: 2 * time.Second,
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for HTTP endpoint %s: %w", url, ctx.Err())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
			if err != nil {
				continue
			}

			resp, err := client.Do(req)
			if err != nil {
				continue
			}
			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// WaitForTCP waits for a TCP port to accept connections. It retries every
// 500ms until the port is open, the timeout is reached, or ctx is
// cancelled.
func WaitForTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for TCP port %s: %w", address, ctx.Err())
		case <-ticker.C:
			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", address)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}

// RetryWithBackoff retries fn with exponential backoff, starting at
// initialDelay and doubling up to maxDelay. It returns nil as soon as fn
// succeeds and the last error once maxAttempts is exhausted. Connector
// registration against a Connect runtime that is still rebalancing is the
// typical caller.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	initialDelay time.Duration,
	maxDelay time.Duration,
	fn func() error,
) error {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w (last error: %w)", ctx.Err(), lastErr)
		case <-time.After(delay):
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}

	return fmt.Errorf("max attempts (%d) reached: %w", maxAttempts, lastErr)
}

// PortIsAvailable checks if a port is available for binding on the host.
func PortIsAvailable(port int) bool {
	address := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// GetFreePort finds and returns an available port on the host by binding
// to port 0 and letting the OS assign one.
func GetFreePort() (int, error) {
	//nolint:gosec // G102: Binding to :0 is intentional for finding free ports
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("listener address is not TCP: %T", listener.Addr())
	}
	return addr.Port, nil
}
