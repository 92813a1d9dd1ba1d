package collectors

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockProbe implements Probe for testing. All fields are configurable and it
// tracks how many times Collect has been called.
type MockProbe struct {
	name        string
	placeholder string

	mu    sync.RWMutex
	value string
	err   error

	callCount atomic.Int64

	// CollectFunc, if set, overrides the default Collect behavior.
	// This allows tests to inject dynamic behavior (e.g., panic, or return
	// different values on each call).
	CollectFunc func(ctx context.Context) (string, error)
}

// MockProbeOption configures a MockProbe.
type MockProbeOption func(*MockProbe)

// WithValue sets the value returned by Collect.
func WithValue(v string) MockProbeOption {
	return func(m *MockProbe) { m.value = v }
}

// WithError sets the error returned by Collect.
func WithError(err error) MockProbeOption {
	return func(m *MockProbe) { m.err = err }
}

// WithPlaceholder sets the degraded value reported by Placeholder.
func WithPlaceholder(p string) MockProbeOption {
	return func(m *MockProbe) { m.placeholder = p }
}

// WithCollectFunc sets a custom function for Collect.
func WithCollectFunc(fn func(ctx context.Context) (string, error)) MockProbeOption {
	return func(m *MockProbe) { m.CollectFunc = fn }
}

// NewMockProbe creates a mock probe with the given name and options.
func NewMockProbe(name string, opts ...MockProbeOption) *MockProbe {
	m := &MockProbe{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the probe name.
func (m *MockProbe) Name() string { return m.name }

// Placeholder returns the configured degraded value.
func (m *MockProbe) Placeholder() string { return m.placeholder }

// SetValue updates the returned value (thread-safe).
func (m *MockProbe) SetValue(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
}

// SetError updates the returned error (thread-safe).
func (m *MockProbe) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Collect increments the call counter and returns the configured value and
// error, or delegates to CollectFunc if set.
func (m *MockProbe) Collect(ctx context.Context) (string, error) {
	m.callCount.Add(1)

	if m.CollectFunc != nil {
		return m.CollectFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.err
}

// CallCount returns how many times Collect has been called.
func (m *MockProbe) CallCount() int64 {
	return m.callCount.Load()
}
