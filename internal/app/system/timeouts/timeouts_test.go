package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second, Task: time.Minute})

	got := Current()
	if got.Short != 7*time.Second {
		t.Errorf("Short = %v, want 7s", got.Short)
	}
	if got.Task != time.Minute {
		t.Errorf("Task = %v, want 1m", got.Task)
	}
	if got.Medium != DefaultMedium {
		t.Errorf("Medium = %v, want default %v", got.Medium, DefaultMedium)
	}
	if got.Ping != DefaultPing {
		t.Errorf("Ping = %v, want default %v", got.Ping, DefaultPing)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Long: time.Hour})
	Reset()
	if Long() != DefaultLong {
		t.Errorf("Long = %v after Reset, want %v", Long(), DefaultLong)
	}
}

func TestWithTimeout_LogsOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "slow op")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "operation timed out" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.ContextMap()["operation"] != "slow op" {
		t.Errorf("operation field = %v", entry.ContextMap()["operation"])
	}
}

func TestWithTimeout_SilentOnCancel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	_, cancel := WithTimeout(context.Background(), time.Minute, zap.New(core), "fast op")
	cancel()

	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %d", logs.Len())
	}
}
