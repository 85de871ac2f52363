package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StateRunning is the state a healthy connector and its tasks report.
const StateRunning = "RUNNING"

// Client is a minimal client for the Kafka Connect REST API, covering the
// endpoints a CDC integration test needs.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to install a
// mock transport in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Client for the Connect REST API at baseURL
// (e.g. "http://localhost:8083").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the Connect REST API. The body is
// kept verbatim; Connect answers with small JSON documents like
// {"error_code":409,"message":"..."}.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// IsConflict reports whether err is a 409 response. The runtime answers
// 409 to registration requests while the worker group is rebalancing;
// that is the only registration failure worth retrying.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// ConnectorStatus is the response of GET /connectors/{name}/status.
type ConnectorStatus struct {
	Name      string         `json:"name"`
	Connector ConnectorState `json:"connector"`
	Tasks     []TaskState    `json:"tasks"`
	Type      string         `json:"type"`
}

// ConnectorState describes the connector-level state.
type ConnectorState struct {
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
}

// TaskState describes one task's state, including the stack trace when it
// has FAILED.
type TaskState struct {
	ID       int    `json:"id"`
	State    string `json:"state"`
	WorkerID string `json:"worker_id"`
	Trace    string `json:"trace,omitempty"`
}

// Register registers a connector under the given name.
func (c *Client) Register(ctx context.Context, name string, cfg *Configuration) error {
	body, err := cfg.MarshalRegistration(name)
	if err != nil {
		return fmt.Errorf("failed to build registration document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/connectors", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to register connector %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connector registration failed: %w", readAPIError(resp))
	}

	return nil
}

// Delete removes a registered connector.
func (c *Client) Delete(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/connectors/"+name, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete connector %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connector deletion failed: %w", readAPIError(resp))
	}

	return nil
}

// List returns the names of all registered connectors.
func (c *Client) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/connectors", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("connector listing failed: %w", readAPIError(resp))
	}

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, fmt.Errorf("failed to decode connector list: %w", err)
	}

	return names, nil
}

// Status returns the state of the named connector and its tasks.
func (c *Client) Status(ctx context.Context, name string) (*ConnectorStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/connectors/"+name+"/status", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get status for connector %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request failed: %w", readAPIError(resp))
	}

	var status ConnectorStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode connector status: %w", err)
	}

	return &status, nil
}

// IsRunning reports whether the connector and every task report RUNNING.
// A connector with zero tasks is not considered running: Connect reports
// RUNNING at the connector level before task assignment finishes.
func (c *Client) IsRunning(ctx context.Context, name string) (bool, error) {
	status, err := c.Status(ctx, name)
	if err != nil {
		return false, err
	}

	if status.Connector.State != StateRunning || len(status.Tasks) == 0 {
		return false, nil
	}
	for _, task := range status.Tasks {
		if task.State != StateRunning {
			return false, nil
		}
	}
	return true, nil
}

// WaitForRunning polls the connector status until it and all tasks report
// RUNNING or the timeout elapses. A FAILED task aborts the wait
// immediately with its trace in the error.
func (c *Client) WaitForRunning(ctx context.Context, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for connector %s to run: %w", name, ctx.Err())
		case <-ticker.C:
			status, err := c.Status(ctx, name)
			if err != nil {
				// The runtime 404s until the registration propagates
				continue
			}

			for _, task := range status.Tasks {
				if task.State == "FAILED" {
					return fmt.Errorf("task %d of connector %s failed: %s", task.ID, name, task.Trace)
				}
			}

			if status.Connector.State != StateRunning || len(status.Tasks) == 0 {
				continue
			}

			running := true
			for _, task := range status.Tasks {
				if task.State != StateRunning {
					running = false
					break
				}
			}
			if running {
				return nil
			}
		}
	}
}

// readAPIError turns a non-2xx response into an *APIError carrying the
// status code and (truncated) body.
func readAPIError(resp *http.Response) *APIError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err == nil {
		apiErr.Body = strings.TrimSpace(string(body))
	}
	return apiErr
}
