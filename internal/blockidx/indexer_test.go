package blockidx

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/segment"
	"github.com/standardbeagle/hl/internal/types"
)

func buildIndex(t *testing.T, data string, maxSize, concurrency int) *Index {
	t.Helper()
	pool := segment.NewPool(maxSize, 16)
	ix := NewIndexer(pool, maxSize, concurrency, config.DefaultParserSettings())
	idx, err := ix.Build(strings.NewReader(data), "test.log", uint64(len(data)), 1, 2)
	require.NoError(t, err)
	return idx
}

func TestBuildSortedSingleBlock(t *testing.T) {
	data := `{"ts":1,"level":"info","msg":"a"}` + "\n" +
		`{"ts":2,"level":"error","msg":"b"}` + "\n" +
		`{"ts":3,"level":"info","msg":"c"}` + "\n"

	idx := buildIndex(t, data, 1<<16, 2)
	require.Len(t, idx.Source.Blocks, 1)

	blk := idx.Source.Blocks[0]
	assert.Equal(t, uint64(0), blk.Offset)
	assert.Equal(t, uint32(len(data)), blk.Size)
	assert.Equal(t, uint64(3), blk.Stat.LinesValid)
	assert.Equal(t, uint64(0), blk.Stat.LinesInvalid)
	assert.Equal(t, types.FlagLevelInfo|types.FlagLevelError|types.FlagHasTimestamps, blk.Stat.Flags)
	require.True(t, blk.Stat.HasTSMinMax)
	assert.Equal(t, types.Timestamp{Sec: 1}, blk.Stat.TSMin)
	assert.Equal(t, types.Timestamp{Sec: 3}, blk.Stat.TSMax)
	assert.Nil(t, blk.Chronology)

	assert.Equal(t, blk.Stat, idx.Source.Stat)
	assert.Equal(t, uint64(len(data)), idx.Source.Size)
}

func TestBuildUnsortedBlockChronology(t *testing.T) {
	// Physical timestamp order 5,1,4,2,3; each line is 19 bytes including
	// the newline, so line offsets are 0,19,38,57,76.
	var sb strings.Builder
	for _, ts := range []int{5, 1, 4, 2, 3} {
		fmt.Fprintf(&sb, `{"ts":%d,"msg":"a"}`+"\n", ts)
	}
	data := sb.String()

	idx := buildIndex(t, data, 1<<16, 1)
	require.Len(t, idx.Source.Blocks, 1)
	blk := idx.Source.Blocks[0]

	assert.NotZero(t, blk.Stat.Flags&types.FlagUnsorted)
	require.NotNil(t, blk.Chronology)
	c := blk.Chronology

	// Chronological order is orig lines 1,3,4,2,0. Line 4 follows line 3
	// physically, so only lines 3, 2 and 0 need jumps.
	require.Len(t, c.Offsets, 1)
	assert.Equal(t, ChronologyOffset{ByteOffset: 19, JumpIndex: 0}, c.Offsets[0])
	require.Len(t, c.Bitmap, 1)
	assert.Equal(t, uint64(0b11010), c.Bitmap[0])
	assert.Equal(t, []uint32{57, 38, 0}, c.Jumps)
}

func TestBuildCountsInvalidLines(t *testing.T) {
	data := `{"ts":1,"msg":"ok"}` + "\n" +
		"not json at all\n" +
		`{"ts":2,"msg":"ok"}` + "\n"

	idx := buildIndex(t, data, 1<<16, 2)
	assert.Equal(t, uint64(2), idx.Source.Stat.LinesValid)
	assert.Equal(t, uint64(1), idx.Source.Stat.LinesInvalid)
}

func TestBuildMultipleBlocksSequentialOffsets(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, `{"ts":%d,"level":"info","msg":"line %04d"}`+"\n", 1000+i, i)
	}
	data := sb.String()

	idx := buildIndex(t, data, 256, 3)
	require.Greater(t, len(idx.Source.Blocks), 1)

	var offset uint64
	var valid uint64
	for _, blk := range idx.Source.Blocks {
		assert.Equal(t, offset, blk.Offset)
		offset += uint64(blk.Size)
		valid += blk.Stat.LinesValid
	}
	assert.Equal(t, uint64(len(data)), offset)
	assert.Equal(t, uint64(200), valid)
	assert.Equal(t, types.Timestamp{Sec: 1000}, idx.Source.Stat.TSMin)
	assert.Equal(t, types.Timestamp{Sec: 1199}, idx.Source.Stat.TSMax)
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, 1<<16, 1<<16, config.DefaultParserSettings())

	idx := sampleIndex()
	require.NoError(t, cache.Save("/var/log/app.log", idx))

	got, ok := cache.Load("/var/log/app.log", idx.Source.Size, idx.Source.ModifiedSec, idx.Source.ModifiedNsec)
	require.True(t, ok)
	assert.Equal(t, idx, got)

	// A stale identity is a miss.
	_, ok = cache.Load("/var/log/app.log", idx.Source.Size+1, idx.Source.ModifiedSec, idx.Source.ModifiedNsec)
	assert.False(t, ok)

	// Different parsing parameters land in a different directory entirely.
	other := NewCache(dir, 1<<20, 1<<20, config.DefaultParserSettings())
	_, ok = other.Load("/var/log/app.log", idx.Source.Size, idx.Source.ModifiedSec, idx.Source.ModifiedNsec)
	assert.False(t, ok)
}

func TestCacheCorruptFileIsAMiss(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, 1<<16, 1<<16, config.DefaultParserSettings())
	idx := sampleIndex()
	require.NoError(t, cache.Save("/var/log/app.log", idx))

	p := cache.pathFor("/var/log/app.log")
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	raw[0] ^= 0xff
	require.NoError(t, os.WriteFile(p, raw, 0o644))

	_, ok := cache.Load("/var/log/app.log", idx.Source.Size, idx.Source.ModifiedSec, idx.Source.ModifiedNsec)
	assert.False(t, ok)
}
