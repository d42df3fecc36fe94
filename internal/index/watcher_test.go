package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/query"
	"github.com/awick/atompress/internal/store"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func watcherEnv(t *testing.T) (string, *store.Store, *SQLite) {
	t.Helper()
	dataDir := t.TempDir()
	st, err := store.New(dataDir, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return dataDir, st, testSQLite(t)
}

func indexed(s *SQLite, slug string) func() bool {
	return func() bool {
		_, slugs, err := s.Query(query.Query{})
		if err != nil {
			return false
		}
		for _, sl := range slugs {
			if sl == slug {
				return true
			}
		}
		return false
	}
}

func TestWatchPicksUpOutOfBandWrite(t *testing.T) {
	dataDir, st, idx := watcherEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, idx, st, dataDir, discardLogger())
	time.Sleep(100 * time.Millisecond)

	doc := &atomdoc.Document{ID: "urn:uuid:w1", Title: "Out of Band", Edited: time.Now().UTC()}
	if err := st.SaveEntry("out-of-band", doc); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond,
		indexed(idx, "out-of-band"), "new entry file not indexed by watcher")
}

func TestWatchPicksUpDirectFileEdit(t *testing.T) {
	dataDir, st, idx := watcherEnv(t)

	doc := &atomdoc.Document{ID: "urn:uuid:w3", Title: "Alpha", Edited: time.Now().UTC()}
	if err := st.SaveEntry("edited", doc); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	if err := idx.EntryAdded("edited", doc); err != nil {
		t.Fatalf("EntryAdded: %v", err)
	}
	// Prime the store's document cache with the old parse.
	if _, err := st.GetEntry("edited"); err != nil {
		t.Fatalf("GetEntry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, idx, st, dataDir, discardLogger())
	time.Sleep(100 * time.Millisecond)

	// Rewrite the file directly, bypassing the store.
	doc.Title = "Bravo"
	data, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "edited"), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, slugs, err := idx.Query(query.Query{Text: "bravo"})
		return err == nil && len(slugs) == 1 && slugs[0] == "edited"
	}, "direct file edit not re-indexed with fresh content")
}

func TestWatchPicksUpRemoval(t *testing.T) {
	dataDir, st, idx := watcherEnv(t)

	doc := &atomdoc.Document{ID: "urn:uuid:w2", Title: "Doomed", Edited: time.Now().UTC()}
	if err := st.SaveEntry("doomed", doc); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	if err := idx.EntryAdded("doomed", doc); err != nil {
		t.Fatalf("EntryAdded: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, idx, st, dataDir, discardLogger())
	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(filepath.Join(dataDir, "doomed")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(idx, "doomed")()
	}, "removed entry still indexed")
}
