package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	stamp := time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("CET", 3600))
	if got := FileName(stamp); got != "tiktok_data_20240305_130709.json" {
		t.Errorf("Unexpected file name %q", got)
	}

	for name, want := range map[string]bool{
		"tiktok_data_20240305_130709.json": true,
		"tiktok_data_latest.json":          false,
		"tiktok_data_20240305_130709.tmp":  false,
		"notes.json":                       false,
	} {
		if IsExportFile(name) != want {
			t.Errorf("IsExportFile(%q) = %v, want %v", name, !want, want)
		}
	}
}

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Count() != 0 {
		t.Error("Expected initial export count to be 0")
	}
	if _, err := manager.Latest(); err != ErrNoExports {
		t.Errorf("Expected ErrNoExports, got %v", err)
	}

	name := FileName(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if manager.Exists(name) {
		t.Error("Expected Exists to return false for non-existent file")
	}

	testData := []byte(`{"exported_at": "2024-03-01T00:00:00Z"}`)
	path, err := manager.Save(bytes.NewReader(testData), name)
	if err != nil {
		t.Fatalf("Failed to save export: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be gone")
	}

	if !manager.Exists(name) {
		t.Error("Expected Exists to return true for saved file")
	}

	// files written by someone else are picked up on the next scan
	newer := FileName(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	if err := os.WriteFile(filepath.Join(tempDir, newer), []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to create manual file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create unrelated file: %v", err)
	}

	manager2, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create second manager: %v", err)
	}
	if manager2.Count() != 2 {
		t.Errorf("Expected export count to be 2 after scanning, got %d", manager2.Count())
	}

	latest, err := manager2.Latest()
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if filepath.Base(latest) != newer {
		t.Errorf("Expected latest to be %s, got %s", newer, latest)
	}
}

func TestPrune(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var names []string
	for day := 1; day <= 4; day++ {
		name := FileName(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
		if _, err := manager.Save(bytes.NewReader([]byte("{}")), name); err != nil {
			t.Fatalf("Failed to save export: %v", err)
		}
		names = append(names, name)
	}

	removed, err := manager.Prune(2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if len(removed) != 2 || removed[0] != names[1] || removed[1] != names[0] {
		t.Errorf("Unexpected removed list %v", removed)
	}

	list := manager.List()
	if len(list) != 2 || list[0] != names[3] || list[1] != names[2] {
		t.Errorf("Unexpected remaining list %v", list)
	}
	if _, err := os.Stat(filepath.Join(tempDir, names[0])); !os.IsNotExist(err) {
		t.Error("Expected oldest export to be deleted")
	}

	removed, err = manager.Prune(0)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if len(removed) != 1 || manager.Count() != 1 {
		t.Errorf("Expected keep 0 to behave like keep 1, removed %v", removed)
	}
}
