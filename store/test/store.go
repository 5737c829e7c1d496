// Package test provides a store harness backed by a throwaway SQLite
// database for driver-level tests.
package test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/internal/version"
	"github.com/parleyhq/parley/store"
	"github.com/parleyhq/parley/store/db/sqlite"
)

// NewTestingStore creates a migrated store on a fresh SQLite database under
// the test's temp directory.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	dataDir := t.TempDir()
	p := &profile.Profile{
		Mode:    "dev",
		Driver:  "sqlite",
		Data:    dataDir,
		DSN:     filepath.Join(dataDir, fmt.Sprintf("parley_%s.db", t.Name())),
		Version: version.GetCurrentVersion("dev"),
	}

	driver, err := sqlite.NewDB(p)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	return st
}
