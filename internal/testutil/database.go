package testutil

import (
	"testing"

	"github.com/JossMR/VersionsControlRepository/internal/database"
)

// NewTestAccountStore creates a new in-memory SQLite store with migrations applied.
// The store is automatically closed when the test completes.
func NewTestAccountStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	s, err := database.NewSQLiteStore(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open account store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
