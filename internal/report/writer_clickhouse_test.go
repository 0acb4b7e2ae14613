package report

import (
	"FlowTagger/internal/config"
	"context"
	"testing"
	"time"
)

func TestNewClickHouseWriterUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := config.ClickHouseConfig{Host: "127.0.0.1", Port: 1, Database: "default", Username: "default"}
	if _, err := NewClickHouseWriter(ctx, cfg, 200*time.Millisecond, nil); err == nil {
		t.Fatal("Expected an error connecting to an unreachable ClickHouse server")
	}
}
