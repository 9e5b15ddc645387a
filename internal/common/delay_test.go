package common

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPauseWaits(t *testing.T) {
	start := time.Now()
	if err := Pause(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected to wait at least 20ms, waited %v", elapsed)
	}
}

func TestPauseZeroReturnsImmediately(t *testing.T) {
	if err := Pause(context.Background(), 0); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestPauseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Pause(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Expected cancelled pause to return promptly")
	}

	if err := Pause(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled for zero pause on cancelled context, got: %v", err)
	}
}
