package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, maxAge time.Duration) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.sqlite"), maxAge)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := t.Context()

	if err := s.Put(ctx, "k1", "merged toc", "gpt-4.1-mini"); err != nil {
		t.Fatalf("put: %v", err)
	}

	e, ok, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if e.TOC != "merged toc" || e.Model != "gpt-4.1-mini" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t, time.Hour)
	_, ok, err := s.Get(t.Context(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := t.Context()

	if err := s.Put(ctx, "k1", "old", "m"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k1", "new", "m"); err != nil {
		t.Fatal(err)
	}

	e, ok, _ := s.Get(ctx, "k1")
	if !ok || e.TOC != "new" {
		t.Errorf("expected last write to win, got ok=%v toc=%q", ok, e.TOC)
	}
}

func TestStore_LazyExpiry(t *testing.T) {
	s := openTestStore(t, 30*time.Minute)
	ctx := t.Context()

	if err := s.Put(ctx, "k1", "toc", "m"); err != nil {
		t.Fatal(err)
	}

	// Advance the clock past the retention window.
	s.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	_, ok, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected expired entry to be reported as a miss")
	}
}

func TestStore_SweepAgreesWithGet(t *testing.T) {
	s := openTestStore(t, 30*time.Minute)
	ctx := t.Context()

	if err := s.Put(ctx, "old", "toc", "m"); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return time.Now().Add(29 * time.Minute) }
	if err := s.Put(ctx, "fresh", "toc", "m"); err != nil {
		t.Fatal(err)
	}

	// Both Get and Sweep must use the same threshold: "old" is now
	// 29 minutes past creation (still live), "fresh" is new.
	s.now = func() time.Time { return time.Now().Add(45 * time.Minute) }

	evicted, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 1 {
		t.Errorf("expected 1 eviction, got %d", evicted)
	}
	if _, ok, _ := s.Get(ctx, "old"); ok {
		t.Error("expected swept entry to be gone")
	}
	if _, ok, _ := s.Get(ctx, "fresh"); !ok {
		t.Error("expected fresh entry to survive sweep")
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.sqlite")
	ctx := t.Context()

	s1, err := Open(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Put(ctx, "k1", "persisted", "m"); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := Open(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	e, ok, err := s2.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || e.TOC != "persisted" {
		t.Errorf("expected entry to survive reopen, got ok=%v toc=%q", ok, e.TOC)
	}
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("fp", "0-10", "gpt-4.1-mini")
	k2 := Key("fp", "0-10", "gpt-4.1-mini")
	if k1 != k2 {
		t.Errorf("expected identical keys, got %q and %q", k1, k2)
	}
}

func TestKey_NoAliasing(t *testing.T) {
	keys := map[string]string{
		"base":       Key("fp", "0-10", "m"),
		"other doc":  Key("fp2", "0-10", "m"),
		"other pages": Key("fp", "0-5", "m"),
		"other model": Key("fp", "0-10", "m2"),
		// Shifting a boundary between components must not alias.
		"shifted": Key("fp0", "-10", "m"),
	}
	seen := map[string]string{}
	for name, k := range keys {
		if prev, dup := seen[k]; dup {
			t.Errorf("key collision between %q and %q", name, prev)
		}
		seen[k] = name
	}
}

func TestPageRange(t *testing.T) {
	if got := PageRange(10); got != "0-10" {
		t.Errorf("expected 0-10, got %q", got)
	}
}
