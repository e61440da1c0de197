// Package checkpoint records which profiles or videos an ingestion pass has
// finished so an interrupted run can be resumed without repeating them.
//
// One checkpoint file exists per pass ("profiles" or "comments"). Files live
// in platform-specific data directories:
//   - Linux: $XDG_DATA_HOME/tikscraper/checkpoints/ or ~/.local/share/tikscraper/checkpoints/
//   - macOS: ~/Library/Application Support/tikscraper/checkpoints/
//   - Windows: %APPDATA%/tikscraper/checkpoints/
//
// Saves are atomic (temp file and rename). A pass deletes its checkpoint
// after it has attempted every item.
package checkpoint
