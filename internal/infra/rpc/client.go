package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/cemetery/internal/indexing/metrics"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// Client is the high-level interface for making registry calls.
// It performs a single attempt per call; retries belong to the Scheduler.
type Client struct {
	mu       sync.RWMutex
	provider provider.Provider
}

// NewClient creates a new registry client. A nil provider yields a client
// whose calls fail with ErrServiceUnavailable until SetProvider is called.
func NewClient(p provider.Provider) *Client {
	return &Client{provider: p}
}

// SetProvider swaps the underlying endpoint, e.g. after the identity changes.
func (c *Client) SetProvider(p provider.Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = p
}

// Provider returns the current endpoint, or nil.
func (c *Client) Provider() provider.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider
}

// Call makes a registry call and returns the raw result payload.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	p := c.Provider()
	if p == nil {
		metrics.RPCErrorsTotal.WithLabelValues("none", method, routing.ClassConnectivity.String()).Inc()
		return nil, provider.ErrServiceUnavailable
	}

	name := p.GetName()
	metrics.RPCCallsTotal.WithLabelValues(name, method).Inc()

	start := time.Now()
	result, err := p.Call(ctx, method, params)
	metrics.RPCLatency.WithLabelValues(name, method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(name, method, routing.Classify(err).String()).Inc()
		return nil, err
	}
	return result, nil
}

// CallResult makes a registry call and decodes the payload into out.
func (c *Client) CallResult(ctx context.Context, method string, params []any, out any) error {
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Close releases the underlying provider.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider == nil {
		return nil
	}
	err := c.provider.Close()
	c.provider = nil
	return err
}
