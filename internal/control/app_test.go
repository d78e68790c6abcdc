package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/cemetery/internal/core/config"
	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/indexing/health"
)

func TestApp_MemoryLifecycle(t *testing.T) {
	cfg := FromAppConfig(config.Default())
	cfg.Port = 0
	cfg.Memory = true

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	role, err := app.SignIn(ctx, "")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if role != domain.RoleBoss {
		t.Errorf("expected boss, got %s", role)
	}

	if err := app.Client().AddAlley(ctx, "A"); err != nil {
		t.Fatalf("AddAlley failed: %v", err)
	}

	report := app.Monitor().Probe(ctx)
	if report.Connection != health.ConnectionConnected {
		t.Errorf("expected connected, got %s", report.Connection)
	}

	if err := app.Stop(ctx); err != nil && err != http.ErrServerClosed {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestApp_RemoteRequiresEndpoint(t *testing.T) {
	cfg := FromAppConfig(config.Default())
	if _, err := NewApp(cfg); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

func TestApp_RemoteHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer srv.Close()

	cfg := FromAppConfig(config.Default())
	cfg.Service.Endpoint = srv.URL

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	report := app.Monitor().Probe(context.Background())
	if report.SystemStatus != health.StatusHealthy {
		t.Errorf("expected healthy, got %+v", report)
	}
	transport := report.Services[cfg.Service.Name].Transport
	if transport == nil {
		t.Fatal("expected transport stats for the HTTP registry")
	}
	if !transport.Available || transport.Samples != 1 || transport.ErrorRate != 0 {
		t.Errorf("unexpected transport stats %+v", *transport)
	}
}
