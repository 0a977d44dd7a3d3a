// Package buildstate persists the proof of the last successful build for a
// module: the target version that was built, the fingerprint digest of the
// resulting state and the algorithm that produced it. A record that cannot be
// read or parsed is treated as absent so corruption can never yield a false
// "up to date" verdict.
package buildstate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"git.home.luguber.info/inful/stubforge/internal/logfields"
)

// recordFileName matches the original on-disk layout: one
// <stateDir>/<module>/build.version document per module.
const recordFileName = "build.version"

// Record is the persisted build record for one module.
type Record struct {
	Version string `toml:"version"`
	Digest  string `toml:"hash"`
	Algo    string `toml:"hash_algo"`
}

// Store reads and writes build records under a state directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// the first write.
func NewStore(dir string) *Store {
	return &Store{
		dir:    dir,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	s.logger = logger
	return s
}

// Path returns the record file path for a module.
func (s *Store) Path(module string) string {
	return filepath.Join(s.dir, module, recordFileName)
}

// Read returns the module's build record, or nil when no trustworthy record
// exists. A missing file is the canonical absent result; unreadable or
// malformed records are normalized to absent as well (with a warning) so the
// caller always falls back to a rebuild.
func (s *Store) Read(module string) *Record {
	data, err := os.ReadFile(s.Path(module))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Build record unreadable, treating as absent",
				logfields.Module(module), logfields.Error(err))
		}
		return nil
	}

	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Build record malformed, treating as absent",
			logfields.Module(module), logfields.Error(err))
		return nil
	}
	if rec.Version == "" || rec.Digest == "" || rec.Algo == "" {
		s.logger.Warn("Build record incomplete, treating as absent",
			logfields.Module(module))
		return nil
	}
	return &rec
}

// Write persists the record atomically: the document is written to a
// temporary file in the destination directory and renamed into place, so a
// crash mid-write can never leave a torn record visible to a later Read.
func (s *Store) Write(module string, rec Record) error {
	dir := filepath.Dir(s.Path(module))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal build record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, recordFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(module)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename record into place: %w", err)
	}
	return nil
}
