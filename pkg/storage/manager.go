package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "tiktok_data_"
	fileExt    = ".json"

	// TimestampLayout is the timestamp embedded in export file names
	TimestampLayout = "20060102_150405"
)

// ErrNoExports is returned by Latest when the directory holds no export
var ErrNoExports = errors.New("no exports found")

// FileName returns the export file name for t, in UTC
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(TimestampLayout) + fileExt
}

// IsExportFile reports whether name looks like an export file
func IsExportFile(name string) bool {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
	_, err := time.Parse(TimestampLayout, stamp)
	return err == nil
}

// Manager handles the export files of one directory
type Manager struct {
	outputDir string
	exports   map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		exports:   make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records the exports already present in the directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && IsExportFile(entry.Name()) {
			m.exports[entry.Name()] = true
		}
	}

	return nil
}

// Exists checks if an export with the given name is present
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	known := m.exports[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.outputDir, name)); err == nil {
		m.mu.Lock()
		m.exports[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes r to name through a temporary file and a rename, so readers
// never see a partial export. It returns the final path.
func (m *Manager) Save(r io.Reader, name string) (string, error) {
	filename := filepath.Join(m.outputDir, name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write export data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.exports[name] = true
	m.mu.Unlock()

	return filename, nil
}

// List returns the known export names, newest first
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

// Latest returns the path of the newest export
func (m *Manager) Latest() (string, error) {
	names := m.List()
	if len(names) == 0 {
		return "", ErrNoExports
	}
	return filepath.Join(m.outputDir, names[0]), nil
}

// Prune removes all but the keep newest exports and returns the removed
// names. keep below 1 is treated as 1.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}

	names := m.List()
	if len(names) <= keep {
		return nil, nil
	}

	var removed []string
	for _, name := range names[keep:] {
		err := os.Remove(filepath.Join(m.outputDir, name))
		if err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		m.mu.Lock()
		delete(m.exports, name)
		m.mu.Unlock()
		removed = append(removed, name)
	}
	return removed, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of known exports
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exports)
}
