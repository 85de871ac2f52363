package containers

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// CleanupManager tears down test infrastructure in reverse start order.
// A CDC pipeline starts network, broker, database, then the Connect
// runtime; shutdown must run the other way so the runtime does not log
// connection storms against an already-stopped broker.
type CleanupManager struct {
	mu       sync.Mutex
	cleanups []cleanupFunc
}

type cleanupFunc struct {
	name string
	fn   func() error
}

// NewCleanupManager creates a new CleanupManager.
func NewCleanupManager() *CleanupManager {
	return &CleanupManager{
		cleanups: make([]cleanupFunc, 0),
	}
}

// Add registers a cleanup function. Functions run in LIFO order.
func (cm *CleanupManager) Add(name string, fn func() error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.cleanups = append(cm.cleanups, cleanupFunc{
		name: name,
		fn:   fn,
	})
}

// Cleanup executes all registered cleanup functions in LIFO order. It
// continues past failures and returns the collected errors joined. The
// functions run without holding the lock so a cleanup may itself call Add.
func (cm *CleanupManager) Cleanup() error {
	cm.mu.Lock()
	cleanupsCopy := make([]cleanupFunc, len(cm.cleanups))
	copy(cleanupsCopy, cm.cleanups)
	cm.cleanups = nil
	cm.mu.Unlock()

	var errs []error

	for i := len(cleanupsCopy) - 1; i >= 0; i-- {
		cleanup := cleanupsCopy[i]
		if err := cleanup.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s cleanup failed: %w", cleanup.name, err))
		}
	}

	return errors.Join(errs...)
}

// RegisterTestCleanup wires the manager into t.Cleanup so teardown happens
// even when a test panics.
func (cm *CleanupManager) RegisterTestCleanup(t *testing.T) {
	t.Helper()

	t.Cleanup(func() {
		if err := cm.Cleanup(); err != nil {
			t.Errorf("Cleanup error: %v", err)
		}
	})
}

// CleanupOnce ensures a cleanup function runs exactly once even when it is
// reachable from both t.Cleanup and a defer.
type CleanupOnce struct {
	once sync.Once
	fn   func() error
	err  error
}

// NewCleanupOnce creates a new CleanupOnce wrapper.
func NewCleanupOnce(fn func() error) *CleanupOnce {
	return &CleanupOnce{fn: fn}
}

// Do executes the cleanup function exactly once. Subsequent calls return
// the error from the first execution.
func (co *CleanupOnce) Do() error {
	co.once.Do(func() {
		co.err = co.fn()
	})
	return co.err
}
