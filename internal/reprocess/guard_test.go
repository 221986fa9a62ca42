package reprocess

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestInflightRejectsSecondAcquire(t *testing.T) {
	g := newInflight("", nil)
	release, err := g.acquire("m-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := g.acquire("m-1"); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	other, err := g.acquire("m-2")
	if err != nil {
		t.Fatalf("other match should not be blocked: %v", err)
	}
	other()
	release()
	release()

	again, err := g.acquire("m-1")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestInflightLockFileBlocksOtherInstances(t *testing.T) {
	dir := t.TempDir()
	first := newInflight(dir, nil)
	second := newInflight(dir, nil)

	release, err := first.acquire("m/1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := second.acquire("m/1"); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected lock file to block second instance, got %v", err)
	}
	release()

	release2, err := second.acquire("m/1")
	if err != nil {
		t.Fatalf("acquire after unlock: %v", err)
	}
	release2()
}

func TestLockPathSanitizesMatchID(t *testing.T) {
	got := lockPath("/locks", "../m 1")
	if filepath.Dir(got) != "/locks" {
		t.Fatalf("lockPath escaped the lock directory: %q", got)
	}
	if base := filepath.Base(got); !strings.HasPrefix(base, "reprocess-.._m_1-") || !strings.HasSuffix(base, ".lock") {
		t.Fatalf("unexpected lock file name %q", base)
	}
	if lockPath("/locks", "../m 1") != got {
		t.Fatal("lockPath must be stable for the same id")
	}
}

func TestLockPathKeepsSimilarIDsApart(t *testing.T) {
	if a, b := lockPath("/locks", "a/b"), lockPath("/locks", "a_b"); a == b {
		t.Fatalf("ids a/b and a_b share lock file %q", a)
	}

	dir := t.TempDir()
	first := newInflight(dir, nil)
	second := newInflight(dir, nil)
	release, err := first.acquire("a/b")
	if err != nil {
		t.Fatalf("acquire a/b: %v", err)
	}
	defer release()
	other, err := second.acquire("a_b")
	if err != nil {
		t.Fatalf("a_b must not be blocked by a/b: %v", err)
	}
	other()
}
