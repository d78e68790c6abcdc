package rpc

import (
	"context"

	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// NewOperation creates an Operation with a custom Invoke function.
func NewOperation(name string, invoke func(ctx context.Context) error) Operation {
	return routing.Operation{
		Name:   name,
		Invoke: invoke,
	}
}

// Operation wraps a registry method call so the scheduler can re-invoke it.
// The decoded result is written to out on success.
func (c *Client) Operation(method string, params []any, out any) Operation {
	return routing.Operation{
		Name: method,
		Invoke: func(ctx context.Context) error {
			return c.CallResult(ctx, method, params, out)
		},
	}
}
