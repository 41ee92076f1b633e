package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStorage implements Storage using the filesystem
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{
		baseDir: baseDir,
	}
}

// DefaultStorageDir returns the default storage directory
func DefaultStorageDir() string {
	// Check for test environment variable first
	if testDir := os.Getenv("SKYLINK_ROTATION_DIR"); testDir != "" {
		return testDir
	}

	// Try to use XDG_DATA_HOME first
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "skylinkctl", "rotation")
	}

	// Fall back to ~/.local/share
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "skylinkctl", "rotation")
	}

	// Last resort: use temp directory
	return filepath.Join(os.TempDir(), "skylinkctl", "rotation")
}

// SaveDeployment records the deployed service identity
func (fs *FileStorage) SaveDeployment(dep *Deployment) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writeJSON(filepath.Join("deployments", sanitizeFilename(dep.ServiceName)+".json"), dep)
}

// GetDeployment retrieves the deployment record for a service
func (fs *FileStorage) GetDeployment(serviceName string) (*Deployment, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var dep Deployment
	if err := fs.readJSON(filepath.Join("deployments", sanitizeFilename(serviceName)+".json"), &dep); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no deployment record for service %s (run 'skylinkctl deploy' first)", serviceName)
		}
		return nil, err
	}
	return &dep, nil
}

// SaveStatus saves the current rotation status for a service
func (fs *FileStorage) SaveStatus(status *RotationStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writeJSON(filepath.Join("status", sanitizeFilename(status.ServiceName)+".json"), status)
}

// GetStatus retrieves the current rotation status for a service
func (fs *FileStorage) GetStatus(serviceName string) (*RotationStatus, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var status RotationStatus
	if err := fs.readJSON(filepath.Join("status", sanitizeFilename(serviceName)+".json"), &status); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no status found for service %s", serviceName)
		}
		return nil, err
	}
	return &status, nil
}

// SaveHistory saves a rotation history entry
func (fs *FileStorage) SaveHistory(entry *HistoryEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if entry.ID == "" {
		entry.ID = fmt.Sprintf("%d-%s", entry.Timestamp.UnixNano(), entry.ServiceName)
	}

	rel := filepath.Join("history", sanitizeFilename(entry.ServiceName),
		entry.Timestamp.Format("20060102-150405.000000000")+".json")
	return fs.writeJSON(rel, entry)
}

// GetHistory retrieves rotation history for a service, newest first
func (fs *FileStorage) GetHistory(serviceName string, limit int) ([]HistoryEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	historyDir := filepath.Join(fs.baseDir, "history", sanitizeFilename(serviceName))
	if _, err := os.Stat(historyDir); os.IsNotExist(err) {
		return []HistoryEntry{}, nil
	}

	files, err := os.ReadDir(historyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	// Timestamped filenames sort chronologically, so reverse name order
	// is newest first.
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() > files[j].Name()
	})

	var entries []HistoryEntry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(historyDir, file.Name()))
		if err != nil {
			continue // Skip files that can't be read
		}

		var entry HistoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue // Skip invalid JSON files
		}

		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}

	return entries, nil
}

// CleanupOldEntries removes history entries older than the specified duration
func (fs *FileStorage) CleanupOldEntries(olderThan time.Duration) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	historyDir := filepath.Join(fs.baseDir, "history")
	cutoff := time.Now().Add(-olderThan)

	return filepath.Walk(historyDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		// Expected filename format: 20060102-150405.000000000.json
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		ts, err := time.Parse("20060102-150405.000000000", name)
		if err != nil {
			return nil
		}
		if ts.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to remove old history file %s: %v\n", path, err)
			}
		}
		return nil
	})
}

// writeJSON marshals v and writes it under the base dir, creating parents.
func (fs *FileStorage) writeJSON(rel string, v interface{}) error {
	path := filepath.Join(fs.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rel, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// readJSON reads a document under the base dir into v. Missing files
// surface as os.IsNotExist for caller-specific messages.
func (fs *FileStorage) readJSON(rel string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(fs.baseDir, rel))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", rel, err)
	}
	return nil
}

// sanitizeFilename replaces characters that might be problematic in filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(name)
}
