// Package testutil provides shared test helpers for setting up stores and
// index databases.
package testutil

import (
	"os"
	"testing"

	"github.com/awick/atompress/internal/index"
	"github.com/awick/atompress/internal/store"
)

// TestStore creates a temporary filesystem store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), "", 0)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

// TestSQLite creates a temporary SQLite index that is automatically
// cleaned up.
func TestSQLite(t *testing.T) *index.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "atompress-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	idx, err := index.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}
