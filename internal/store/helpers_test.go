package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/voicecalc/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T, opts ...Option) (*Store, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Time{})
	opts = append([]Option{WithClock(clock)}, opts...)

	path := filepath.Join(t.TempDir(), "history", "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}
