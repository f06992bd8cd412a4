package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Bucknalla/galileo-acquisition-sim/acquisition"
	"github.com/Bucknalla/galileo-acquisition-sim/internal/logging"
)

// syncBuffer guards bytes.Buffer, which run writes to from the tick goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("port closed")
}

func createTestConfig() acquisition.Config {
	config := acquisition.DefaultConfig()
	config.TickInterval = time.Millisecond
	config.SpectrumInterval = time.Hour
	config.Quiet = true
	return config
}

func TestRunCompletes(t *testing.T) {
	var out syncBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := run(ctx, createTestConfig(), &out, logging.Noop())
	if err != nil {
		t.Fatalf("Expected run to complete, got %v", err)
	}

	if summary.Samples != 15 {
		t.Errorf("Expected 15 fix samples, got %d", summary.Samples)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\r\n")
	if len(lines) == 0 {
		t.Fatal("Expected NMEA output")
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "$") || !strings.Contains(line, "*") {
			t.Errorf("Malformed NMEA sentence: %q", line)
		}
	}

	// The last update is the connected state, which ends with ZDA
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, "$GNZDA") {
		t.Errorf("Expected final sentence to be GNZDA, got %q", last)
	}
	if !strings.Contains(out.String(), ",4846.") {
		t.Error("Expected a fix near the reference latitude in the output")
	}
}

func TestRunCancelled(t *testing.T) {
	config := createTestConfig()
	config.TickInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := run(ctx, config, &syncBuffer{}, logging.Noop())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if summary.Samples != 0 {
		t.Errorf("Expected no fix samples, got %d", summary.Samples)
	}
}

func TestRunWriteError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := run(ctx, createTestConfig(), failingWriter{}, logging.Noop())
	if err == nil || !strings.Contains(err.Error(), "port closed") {
		t.Errorf("Expected write error, got %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Step = 0

	_, err := run(context.Background(), config, &syncBuffer{}, logging.Noop())
	if !errors.Is(err, acquisition.ErrInvalidStep) {
		t.Errorf("Expected ErrInvalidStep, got %v", err)
	}
}

// Test version variables
func TestVersionVariables(t *testing.T) {
	// These should have default values
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildDate == "" {
		t.Error("BuildDate should not be empty")
	}

	original := Version
	defer func() { Version = original }()

	Version = "dev"
	if got := versionString(); got != Commit {
		t.Errorf("Expected commit %q for dev builds, got %q", Commit, got)
	}
	Version = "1.2.3"
	if got := versionString(); got != "v1.2.3" {
		t.Errorf("Expected v1.2.3, got %q", got)
	}
}
