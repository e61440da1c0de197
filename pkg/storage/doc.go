// Package storage manages the export directory.
//
// The storage package handles:
//   - Creating the output directory
//   - Saving export files with atomic write operations
//   - Listing existing exports newest first
//   - Pruning old exports
//
// Export files are named with a sortable timestamp, so lexical order of the
// names is chronological order. The Manager keeps the known names in memory
// and rescans the directory when it is created.
//
// Usage:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := manager.Save(document, storage.FileName(time.Now())); err != nil {
//	    log.Printf("Failed to save export: %v", err)
//	}
//	removed, _ := manager.Prune(5)
package storage
