package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthProvider probes the registry's standard gRPC health service.
// It is used only for liveness; registry calls go through HTTPProvider.
type GRPCHealthProvider struct {
	*Tracker
	endpoint string
	service  string
	conn     *grpc.ClientConn
	client   healthpb.HealthClient
}

// NewGRPCHealthProvider creates a health provider for endpoint. Extra dial
// options are appended after the transport credentials.
func NewGRPCHealthProvider(name, endpoint, service string, extra ...grpc.DialOption) (*GRPCHealthProvider, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	return &GRPCHealthProvider{
		Tracker: NewTracker(name),
		endpoint:     endpoint,
		service:      service,
		conn:         conn,
		client:       healthpb.NewHealthClient(conn),
	}, nil
}

// Check asks the health service whether the registry is serving.
func (p *GRPCHealthProvider) Check(ctx context.Context) error {
	start := time.Now()
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		p.RecordFailure()
		return fmt.Errorf("health check %s: %w", p.endpoint, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		p.RecordFailure()
		return fmt.Errorf("health check %s: status %s", p.endpoint, resp.GetStatus())
	}
	p.RecordSuccess(time.Since(start))
	return nil
}

// Close cleans up resources.
func (p *GRPCHealthProvider) Close() error {
	return p.conn.Close()
}
