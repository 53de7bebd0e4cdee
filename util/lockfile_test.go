package util_test

import (
	"path/filepath"
	"testing"

	"github.com/pganalyze/pgindexrebuild/util"
)

func TestTryLockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pgindexrebuild.lock")

	first, ok, err := util.TryLockFile(path)
	if err != nil || !ok {
		t.Fatalf("first lock: expected ok; got ok=%t err=%v", ok, err)
	}

	second, ok, err := util.TryLockFile(path)
	if err != nil {
		t.Fatalf("second lock: unexpected error: %v", err)
	}
	if ok {
		second.Close()
		t.Fatalf("second lock: expected lock to be held by first file")
	}

	first.Close()

	third, ok, err := util.TryLockFile(path)
	if err != nil || !ok {
		t.Fatalf("lock after release: expected ok; got ok=%t err=%v", ok, err)
	}
	third.Close()
}

func TestTryLockFileUnwritableDirectory(t *testing.T) {
	_, ok, err := util.TryLockFile(filepath.Join(t.TempDir(), "missing", "x.lock"))
	if err == nil || ok {
		t.Errorf("expected error for missing directory; got ok=%t err=%v", ok, err)
	}
}
