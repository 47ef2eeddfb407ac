// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/bionic/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// A nil CompleteFunc returns an empty response. All methods are safe for
// concurrent use.
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	Model        string

	mu       sync.Mutex
	requests []provider.CompletionRequest
}

// Compile-time interface check.
var _ provider.Provider = (*MockProvider)(nil)

// Complete records req and delegates to CompleteFunc.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CompleteFunc == nil {
		return provider.CompletionResponse{}, nil
	}
	return m.CompleteFunc(ctx, req)
}

// ModelName implements provider.Provider.
func (m *MockProvider) ModelName() string {
	if m.Model == "" {
		return "mock"
	}
	return m.Model
}

// Requests returns a copy of every request received so far.
func (m *MockProvider) Requests() []provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provider.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
