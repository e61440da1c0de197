package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"tikscraper/pkg/logger"
)

func TestCheckpointLifecycle(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, "profiles", logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	cp, err := mgr.Load()
	if err != nil || cp != nil {
		t.Fatalf("Expected no checkpoint, got %v, %v", cp, err)
	}

	cp, err = mgr.Create("profiles", "run-1")
	if err != nil {
		t.Fatalf("Failed to create checkpoint: %v", err)
	}
	if !mgr.Exists() {
		t.Fatal("Expected checkpoint file to exist")
	}

	if err := mgr.MarkFailed(cp, "bob", errors.New("yt-dlp failed")); err != nil {
		t.Fatalf("Failed to mark failure: %v", err)
	}
	if err := mgr.MarkDone(cp, "alice"); err != nil {
		t.Fatalf("Failed to mark done: %v", err)
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("Failed to load checkpoint: %v", err)
	}
	if loaded.RunID != "run-1" {
		t.Errorf("Expected run id run-1, got %s", loaded.RunID)
	}
	if !loaded.IsDone("alice") {
		t.Error("Expected alice to be done")
	}
	if loaded.IsDone("bob") {
		t.Error("Expected bob not to be done")
	}
	if loaded.Failed["bob"] != "yt-dlp failed" {
		t.Errorf("Expected failure to be recorded, got %q", loaded.Failed["bob"])
	}

	// a later success clears the failure
	if err := mgr.MarkDone(loaded, "bob"); err != nil {
		t.Fatalf("Failed to mark done: %v", err)
	}
	if _, ok := loaded.Failed["bob"]; ok {
		t.Error("Expected failure entry to be cleared")
	}

	if err := mgr.Delete(); err != nil {
		t.Fatalf("Failed to delete checkpoint: %v", err)
	}
	if mgr.Exists() {
		t.Error("Expected checkpoint to be gone")
	}
	if err := mgr.Delete(); err != nil {
		t.Errorf("Deleting a missing checkpoint should succeed: %v", err)
	}
}

func TestCheckpointNoTempFileLeft(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, "comments", logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if _, err := mgr.Create("comments", "run-2"); err != nil {
		t.Fatalf("Failed to create checkpoint: %v", err)
	}

	if _, err := os.Stat(mgr.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temp file to be renamed away, stat err = %v", err)
	}
	if filepath.Base(mgr.Path()) != "comments.checkpoint.json" {
		t.Errorf("Unexpected checkpoint file name %s", mgr.Path())
	}
}

func TestCheckpointCorruptFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, "profiles", logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := os.WriteFile(mgr.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Load(); err == nil {
		t.Error("Expected error for corrupt checkpoint")
	}

	if err := os.WriteFile(mgr.Path(), []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Load(); err == nil {
		t.Error("Expected error for unsupported version")
	}
}

func TestDefaultDirectoryUsesXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_DATA_HOME is only consulted on linux")
	}
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	mgr, err := NewManager("", "profiles", logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	want := filepath.Join(dataHome, "tikscraper", "checkpoints", "profiles.checkpoint.json")
	if mgr.Path() != want {
		t.Errorf("Expected %s, got %s", want, mgr.Path())
	}
}
