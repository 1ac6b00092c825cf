// Package backup creates immutable snapshots of the dataset file. Snapshots
// are pure recovery artifacts: written once, never mutated, never read by
// the engines themselves.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"venuescraper/pkg/logger"
)

const timestampLayout = "20060102_150405"

// Manager writes tagged snapshots of the dataset file.
type Manager struct {
	dir    string
	now    func() time.Time
	logger logger.Logger
}

// NewManager creates a snapshot manager writing into dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Manager{
		dir:    dir,
		now:    time.Now,
		logger: logger.GetLogger(),
	}, nil
}

// Snapshot copies the dataset file into a tagged, timestamped snapshot and
// returns its path. An existing snapshot is never overwritten; tags include
// a timestamp and, on collision, a numeric suffix.
func (m *Manager) Snapshot(datasetPath, tag string) (string, error) {
	src, err := os.Open(datasetPath)
	if err != nil {
		return "", fmt.Errorf("failed to open dataset for snapshot: %w", err)
	}
	defer src.Close()

	backupPath := m.snapshotPath(datasetPath, tag)

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to copy dataset to snapshot: %w", err)
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to sync snapshot file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("failed to close snapshot file: %w", err)
	}

	m.logger.InfoWithFields("snapshot created", map[string]interface{}{
		"path": backupPath,
		"tag":  tag,
	})

	return backupPath, nil
}

// snapshotPath builds a unique snapshot file name:
// <dataset-base>_<tag>_<timestamp>.json
func (m *Manager) snapshotPath(datasetPath, tag string) string {
	base := filepath.Base(datasetPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".json"
	}

	timestamp := m.now().Format(timestampLayout)
	name := fmt.Sprintf("%s_%s_%s%s", stem, tag, timestamp, ext)
	path := filepath.Join(m.dir, name)

	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		name = fmt.Sprintf("%s_%s_%s_%d%s", stem, tag, timestamp, i, ext)
		path = filepath.Join(m.dir, name)
	}
}

// Snapshots lists existing snapshot files, newest first.
func (m *Manager) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			names = append(names, filepath.Join(m.dir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
