package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestComputeUnsupportedAlgorithm(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Compute("md5", []Input{String("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported hash algorithm")
}

func TestComputeIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pyi", "class A: ...")
	writeFile(t, dir, "sub/b.pyi", "class B: ...")

	engine := NewEngine()
	inputs := []Input{String("1.8.0"), String("2.31.0"), Dir(dir)}

	first, err := engine.Compute(DefaultAlgorithm, inputs)
	require.NoError(t, err)
	second, err := engine.Compute(DefaultAlgorithm, inputs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestComputeDetectsSingleByteChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pyi", "class A: ...")

	engine := NewEngine()
	inputs := []Input{Dir(dir)}

	before, err := engine.Compute(DefaultAlgorithm, inputs)
	require.NoError(t, err)

	writeFile(t, dir, "a.pyi", "class B: ...")
	after, err := engine.Compute(DefaultAlgorithm, inputs)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestVersionStringChangeChangesDigest(t *testing.T) {
	engine := NewEngine()
	a, err := engine.Compute(DefaultAlgorithm, []Input{String("tool-1"), String("2.0.0")})
	require.NoError(t, err)
	b, err := engine.Compute(DefaultAlgorithm, []Input{String("tool-1"), String("2.0.1")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAbsentAndEmptyDirDiffer(t *testing.T) {
	engine := NewEngine()

	empty := t.TempDir()
	absent := filepath.Join(t.TempDir(), "does-not-exist")

	emptyDigest, err := engine.Compute(DefaultAlgorithm, []Input{Dir(empty)})
	require.NoError(t, err)
	absentDigest, err := engine.Compute(DefaultAlgorithm, []Input{Dir(absent)})
	require.NoError(t, err)
	assert.NotEqual(t, emptyDigest, absentDigest)
}

func TestDigestIndependentOfTreeLocation(t *testing.T) {
	// Entry paths are hashed relative to the tree root, so two identical
	// trees staged in different locations must fingerprint identically.
	dirA := t.TempDir()
	dirB := t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		writeFile(t, dir, "pkg/__init__.pyi", "x: int")
		writeFile(t, dir, "pkg/core.pyi", "def f() -> None: ...")
	}

	engine := NewEngine()
	digestA, err := engine.Compute(DefaultAlgorithm, []Input{Dir(dirA)})
	require.NoError(t, err)
	digestB, err := engine.Compute(DefaultAlgorithm, []Input{Dir(dirB)})
	require.NoError(t, err)
	assert.Equal(t, digestA, digestB)
}

func TestFramingDistinguishesChunkBoundaries(t *testing.T) {
	// ["ab","c"] and ["a","bc"] concatenate to the same bytes; the length
	// prefix must keep their digests apart.
	engine := NewEngine()
	a, err := engine.Compute(DefaultAlgorithm, []Input{String("ab"), String("c")})
	require.NoError(t, err)
	b, err := engine.Compute(DefaultAlgorithm, []Input{String("a"), String("bc")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFileInputHashesPathAndContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.pyi", "same")
	writeFile(t, dir, "two.pyi", "same")

	engine := NewEngine()
	one, err := engine.Compute(DefaultAlgorithm, []Input{File(filepath.Join(dir, "one.pyi"))})
	require.NoError(t, err)
	two, err := engine.Compute(DefaultAlgorithm, []Input{File(filepath.Join(dir, "two.pyi"))})
	require.NoError(t, err)
	assert.NotEqual(t, one, two, "path contributes to the digest")
}

func TestFileInputMissingFileIsError(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Compute(DefaultAlgorithm, []Input{File(filepath.Join(t.TempDir(), "gone.pyi"))})
	require.Error(t, err)
}

func TestDirRenameChangesDigest(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "root/a/x.pyi", "x")

	engine := NewEngine()
	before, err := engine.Compute(DefaultAlgorithm, []Input{Dir(filepath.Join(base, "root"))})
	require.NoError(t, err)

	require.NoError(t, os.Rename(filepath.Join(base, "root", "a"), filepath.Join(base, "root", "b")))
	after, err := engine.Compute(DefaultAlgorithm, []Input{Dir(filepath.Join(base, "root"))})
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("blake2b"))
	assert.False(t, Supported("sha256"))
	assert.False(t, Supported(""))
	assert.Equal(t, []string{"blake2b"}, Algorithms())
}
