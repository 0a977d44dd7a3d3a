// Package fingerprint computes deterministic digests over the ordered set of
// inputs that affect a module's generated stubs: tool version strings, target
// version strings, override directory trees and previously materialized
// artifacts. Identical inputs always produce identical digests regardless of
// filesystem enumeration order.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// DefaultAlgorithm is the algorithm used when writing new build records.
const DefaultAlgorithm = "blake2b"

// algorithms is the closed allow-list of supported digest algorithms. A build
// record naming anything else is untrustworthy and treated as absent.
var algorithms = map[string]func() hash.Hash{
	"blake2b": func() hash.Hash {
		h, err := blake2b.New512(nil)
		if err != nil {
			// blake2b.New512 only fails for oversized keys; we pass none.
			panic(fmt.Sprintf("blake2b init: %v", err))
		}
		return h
	},
}

// Supported reports whether algo is in the allow-list.
func Supported(algo string) bool {
	_, ok := algorithms[algo]
	return ok
}

// Algorithms returns the allow-list keys in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Input is one byte-providing element of a fingerprint input set.
type Input interface {
	addTo(fr *framer) error
}

// String contributes a literal string (tool versions, target versions).
type String string

// File contributes a single file, hashed as its path string plus its content.
type File string

// Dir contributes a directory tree, hashed with a deterministic recursive
// walk. A missing directory contributes only an "absent" marker byte, which
// is distinguishable from an empty directory (present marker, root path
// frame, entry count 1).
type Dir string

// Engine computes digests with a pluggable algorithm selected by name.
type Engine struct{}

// NewEngine creates a fingerprint engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute hashes the inputs in order with the named algorithm and returns the
// hex-encoded digest. It reads filesystem content but never writes.
func (e *Engine) Compute(algo string, inputs []Input) (string, error) {
	newHash, ok := algorithms[algo]
	if !ok {
		return "", fmt.Errorf("unsupported hash algorithm %q", algo)
	}

	fr := &framer{h: newHash()}
	for _, in := range inputs {
		if err := in.addTo(fr); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(fr.h.Sum(nil)), nil
}

// framer writes length-prefixed chunks into the digest. Every variable-length
// chunk is preceded by its 8-byte big-endian length so that differently
// shaped trees can never concatenate to the same byte stream.
type framer struct {
	h hash.Hash
}

func (fr *framer) frame(b []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(b)))
	fr.h.Write(length[:])
	fr.h.Write(b)
}

func (fr *framer) raw(b []byte) {
	fr.h.Write(b)
}

func (s String) addTo(fr *framer) error {
	fr.frame([]byte(s))
	return nil
}

func (f File) addTo(fr *framer) error {
	return hashFile(fr, string(f), string(f))
}

// hashFile frames the label (the path string contributed to the digest) and
// the file's content.
func hashFile(fr *framer, label, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	fr.frame([]byte(label))
	fr.frame(content)
	return nil
}

const (
	dirAbsent  = 0
	dirPresent = 1
)

func (d Dir) addTo(fr *framer) error {
	root := string(d)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			fr.raw([]byte{dirAbsent})
			return nil
		}
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fingerprint input %s is not a directory", root)
	}

	fr.raw([]byte{dirPresent})

	// Entry paths are hashed relative to the tree root (slash-separated) so
	// the digest does not depend on where the tree is staged.
	var count uint64
	if err := hashDirLevel(fr, root, ".", &count); err != nil {
		return err
	}

	var trailer [8]byte
	binary.BigEndian.PutUint64(trailer[:], count)
	fr.raw(trailer[:])
	return nil
}

// hashDirLevel hashes one directory level: the level's relative path, then
// every contained file in name order, then each subdirectory recursively in
// name order. Each visited directory and file increments count.
func hashDirLevel(fr *framer, root, rel string, count *uint64) error {
	fr.frame([]byte(rel))
	*count++

	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("read dir %s: %w", rel, err)
	}

	// os.ReadDir returns entries sorted by name; split into files and
	// subdirectories while preserving that order.
	var files, subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}

	for _, name := range files {
		entryRel := path.Join(rel, name)
		if err := hashFile(fr, entryRel, filepath.Join(root, filepath.FromSlash(entryRel))); err != nil {
			return err
		}
		*count++
	}
	for _, name := range subdirs {
		if err := hashDirLevel(fr, root, path.Join(rel, name), count); err != nil {
			return err
		}
	}
	return nil
}
