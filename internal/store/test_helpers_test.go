package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/sdfsched/internal/ir"
	"github.com/roach88/sdfsched/internal/schedule"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// scheduleModel runs the scheduler with logging discarded.
func scheduleModel(t *testing.T, m *ir.Model) (*schedule.Result, error) {
	t.Helper()
	s := &schedule.Scheduler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	return s.Schedule(context.Background(), m)
}
