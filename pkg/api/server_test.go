package api

import (
	"context"
	"testing"
	"time"

	"github.com/sagaline/sagaline/config"
	"github.com/sagaline/sagaline/pkg/logger"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 18080

	server := NewHTTPServer(cfg, logger.Global(), newTestHandlers(t))
	if server.server.Addr != "127.0.0.1:18080" {
		t.Fatalf("addr = %q, want 127.0.0.1:18080", server.server.Addr)
	}
	if server.router == nil {
		t.Fatal("router should be set")
	}
}

func TestHTTPServerShutdownWithoutStart(t *testing.T) {
	cfg := config.DefaultConfig()
	server := NewHTTPServer(cfg, logger.Global(), newTestHandlers(t))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}
