// Package overlay merges a freshly generated stub tree with zero or more
// override directories into the final output location. Later override
// directories have higher priority: a file present at the same relative path
// overwrites whatever an earlier source put there.
package overlay

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/stubforge/internal/logfields"
)

// Materialize copies the primary tree into dest, then each override tree in
// increasing priority order. Source directories that do not exist are
// silently skipped; overrides are optional by design.
func Materialize(primary string, overrides []string, dest string) error {
	if err := copyTree(primary, dest); err != nil {
		return err
	}
	for _, override := range overrides {
		if err := copyTree(override, dest); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies src into dst preserving relative paths, file modes and
// modification times. A nonexistent src is a no-op.
func copyTree(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			slog.Debug("Skipping nonexistent layer source", logfields.Path(src))
			return nil
		}
		return fmt.Errorf("stat layer source %s: %w", src, err)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			return nil
		}
		return copyFile(path, target)
	})
}

// copyFile copies one file, carrying over mode and mtime so later fingerprint
// runs observe the same bytes and metadata.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create parent of %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	// Overwrites may need the mode corrected when the file already existed.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}
	return nil
}
