// Package workspace manages the ephemeral staging directories the generator
// writes into before layering copies the result to its final location.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/stubforge/internal/logfields"
)

// Manager handles one module's staging directory lifecycle.
type Manager struct {
	baseDir string
	tempDir string
}

// NewManager creates a workspace manager rooted at the module's working
// directory. Each Create produces a fresh timestamped staging directory so a
// crashed run never pollutes the next one.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create creates a timestamped staging directory.
func (m *Manager) Create() error {
	timestamp := time.Now().Format("20060102-150405.000000000")
	tempDir := filepath.Join(m.baseDir, fmt.Sprintf("stage-%s", timestamp))

	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	m.tempDir = tempDir
	slog.Debug("Created staging directory", logfields.Path(tempDir))
	return nil
}

// Path returns the staging directory path.
func (m *Manager) Path() string {
	return m.tempDir
}

// CreateSubdir creates a subdirectory within the staging directory.
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.tempDir == "" {
		return "", fmt.Errorf("staging directory not created")
	}

	subdir := filepath.Join(m.tempDir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return subdir, nil
}

// Cleanup removes the staging directory.
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}
	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup staging directory: %w", err)
	}
	slog.Debug("Cleaned up staging directory", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}
