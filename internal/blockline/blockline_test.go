package blockline

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/hl/internal/blockidx"
	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/segment"
)

func collect(it *Iterator) []string {
	var lines []string
	for {
		line, ok := it.Next()
		if !ok {
			return lines
		}
		lines = append(lines, string(line))
	}
}

func TestSortedBlockScansForward(t *testing.T) {
	data := []byte("one\ntwo\nthree\n")
	it := New(data, nil)
	assert.Equal(t, []string{"one", "two", "three"}, collect(it))
}

func TestMissingTrailingNewline(t *testing.T) {
	it := New([]byte("one\ntwo"), nil)
	assert.Equal(t, []string{"one", "two"}, collect(it))
}

func TestCarriageReturnStripped(t *testing.T) {
	it := New([]byte("one\r\ntwo\r\n"), nil)
	assert.Equal(t, []string{"one", "two"}, collect(it))
}

// indexBlock builds a real index for data and returns the single block's
// chronology, so the iterator is exercised against the encoder that
// actually produces its input.
func indexBlock(t *testing.T, data string) *blockidx.Chronology {
	t.Helper()
	pool := segment.NewPool(1<<16, 4)
	ix := blockidx.NewIndexer(pool, 1<<16, 1, config.DefaultParserSettings())
	idx, err := ix.Build(strings.NewReader(data), "test.log", uint64(len(data)), 0, 0)
	require.NoError(t, err)
	require.Len(t, idx.Source.Blocks, 1)
	return idx.Source.Blocks[0].Chronology
}

func TestChronologyIterationOrder(t *testing.T) {
	// Physical order 5,1,4,2,3 must come out as 1,2,3,4,5.
	var sb strings.Builder
	for _, ts := range []int{5, 1, 4, 2, 3} {
		fmt.Fprintf(&sb, `{"ts":%d,"msg":"m%d"}`+"\n", ts, ts)
	}
	data := sb.String()
	chron := indexBlock(t, data)
	require.NotNil(t, chron)

	got := collect(New([]byte(data), chron))
	var want []string
	for ts := 1; ts <= 5; ts++ {
		want = append(want, fmt.Sprintf(`{"ts":%d,"msg":"m%d"}`, ts, ts))
	}
	assert.Equal(t, want, got)
}

func TestChronologyYieldsSameMultisetAsByteScan(t *testing.T) {
	// A shuffled run long enough to span several 64-line chunks.
	perm := []int{}
	for i := 0; i < 200; i++ {
		perm = append(perm, i)
	}
	// Deterministic shuffle: reverse pairs of a fixed stride.
	for i := 0; i < len(perm); i += 2 {
		j := (i + 7) % len(perm)
		perm[i], perm[j] = perm[j], perm[i]
	}

	var sb strings.Builder
	for _, ts := range perm {
		fmt.Fprintf(&sb, `{"ts":%d,"msg":"x"}`+"\n", 1000+ts)
	}
	data := sb.String()
	chron := indexBlock(t, data)
	require.NotNil(t, chron)

	got := collect(New([]byte(data), chron))
	want := collect(New([]byte(data), nil))
	require.Len(t, got, len(want))

	// Chronological order is sorted order of the direct scan.
	sort.Strings(want)
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	assert.Equal(t, want, sorted)

	// And the yielded sequence itself is non-decreasing in timestamp.
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1], got[i])
	}
}
