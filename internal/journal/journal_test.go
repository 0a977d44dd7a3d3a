package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, Entry{
		RunID: "run-1", Module: "requests", Outcome: "rebuilt",
		Version: "2.31.0", Digest: "abc", Duration: 1200 * time.Millisecond,
	}))
	require.NoError(t, j.Record(ctx, Entry{
		RunID: "run-2", Module: "requests", Outcome: "up_to_date",
		Version: "2.31.0", Digest: "abc",
	}))
	require.NoError(t, j.Record(ctx, Entry{
		RunID: "run-2", Module: "numpy", Outcome: "failed",
		Version: "1.26", Digest: "",
	}))

	all, err := j.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "numpy", all[0].Module, "newest first")

	onlyRequests, err := j.Recent(ctx, "requests", 10)
	require.NoError(t, err)
	require.Len(t, onlyRequests, 2)
	assert.Equal(t, "up_to_date", onlyRequests[0].Outcome)
	assert.Equal(t, 1200*time.Millisecond, onlyRequests[1].Duration)
}

func TestRecentLimit(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{RunID: "run", Module: "m", Outcome: "rebuilt", Version: "1", Digest: "d"}))
	}

	entries, err := j.Recent(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenPersistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, Entry{RunID: "r", Module: "m", Outcome: "rebuilt", Version: "1", Digest: "d"}))
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	entries, err := reopened.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
