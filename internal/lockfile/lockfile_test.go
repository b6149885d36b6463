package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireLockRecordsHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer lock.Release()

	content, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	want := fmt.Sprintf("pid=%d\n", os.Getpid())
	if string(content) != want {
		t.Errorf("lock file content = %q, want %q", content, want)
	}
}

func TestAcquireLockConflict(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer first.Release()

	second, err := AcquireLock(dir)
	if err == nil {
		second.Release()
		t.Fatal("second AcquireLock() on a held directory succeeded")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("conflict error type = %T, want *LockError", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "another LifeDraft instance") {
		t.Errorf("conflict message does not name the cause: %s", msg)
	}
	if !strings.Contains(msg, filepath.Join(dir, LockFileName)) {
		t.Errorf("conflict message does not name the lock file: %s", msg)
	}
	if !strings.Contains(lockErr.Holder, fmt.Sprintf("PID %d (running)", os.Getpid())) {
		t.Errorf("holder description = %q, want our running PID", lockErr.Holder)
	}
}

func TestReleaseRemovesLockFile(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	if err := lock.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("lock file still present after release: %s", lockPath)
	}
	// Repeated release is a no-op.
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	if relock, err := AcquireLock(dir); err != nil {
		t.Errorf("AcquireLock() after release error = %v", err)
	} else {
		relock.Release()
	}
}

func TestAcquireLockCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "nested")

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock() on a missing directory error = %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory was not created: %v", err)
	}
}

func TestParseHolderPID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"plain record", "pid=12345", 12345},
		{"record with trailing fields", "pid=67890 host=laptop", 67890},
		{"no pid field", "host=laptop", 0},
		{"empty", "", 0},
		{"non-numeric", "pid=abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseHolderPID(tt.content); got != tt.want {
				t.Errorf("parseHolderPID(%q) = %d, want %d", tt.content, got, tt.want)
			}
		})
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("our own process reported dead")
	}
}
