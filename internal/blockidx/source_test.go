package blockidx

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/input"
	"github.com/standardbeagle/hl/internal/segment"
)

func sampleLog(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `{"ts":%d,"level":"info","msg":"line %d"}`+"\n", 1000+i, i)
	}
	return sb.String()
}

func testIndexer() *Indexer {
	pool := segment.NewPool(1<<16, 8)
	return NewIndexer(pool, 1<<16, 2, config.DefaultParserSettings())
}

func TestIndexSourcePlainFileUsesCache(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte(sampleLog(50)), 0o644))

	cache := NewCache(filepath.Join(dir, "cache"), 1<<16, 1<<16, config.DefaultParserSettings())

	src, err := input.OpenSortSource(logPath, input.DefaultReplayOptions())
	require.NoError(t, err)
	defer src.Seekable.Close()

	idx, err := IndexSource(testIndexer(), cache, src)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), idx.Source.Stat.LinesValid)

	// The index must now be on disk and the second run must load the same
	// structure from it.
	cached, ok := cache.Load(logPath, src.Size, src.ModifiedSec, src.ModifiedNsec)
	require.True(t, ok)
	assert.Equal(t, idx, cached)

	again, err := IndexSource(testIndexer(), cache, src)
	require.NoError(t, err)
	assert.Equal(t, idx, again)
}

func TestIndexSourceGzipIsReplayedAndUncached(t *testing.T) {
	dir := t.TempDir()
	gzPath := filepath.Join(dir, "app.log.gz")

	f, err := os.Create(gzPath)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(sampleLog(30)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	cacheDir := filepath.Join(dir, "cache")
	cache := NewCache(cacheDir, 1<<16, 1<<16, config.DefaultParserSettings())

	src, err := input.OpenSortSource(gzPath, input.DefaultReplayOptions())
	require.NoError(t, err)
	defer src.Seekable.Close()
	assert.True(t, src.Replayed)

	idx, err := IndexSource(testIndexer(), cache, src)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), idx.Source.Stat.LinesValid)
	assert.Equal(t, uint64(len(sampleLog(30))), src.Size)

	// Replayed sources have no stable identity; nothing may be persisted.
	entries, err := os.ReadDir(cacheDir)
	if err == nil {
		assert.Empty(t, entries)
	}

	// Blocks must be re-readable by offset through the replay buffer.
	blk := idx.Source.Blocks[0]
	buf := make([]byte, blk.Size)
	_, err = src.Seekable.ReadAt(buf, int64(blk.Offset))
	require.NoError(t, err)
	assert.Equal(t, sampleLog(30)[:blk.Size], string(buf))
}
