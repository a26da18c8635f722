package input

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayTestData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func TestReplayBufReadAt(t *testing.T) {
	data := replayTestData(10_000)
	rb := NewReplayBuf(bytes.NewReader(data), ReplayOptions{SegmentSize: 1024, CacheEntries: 2})
	defer rb.Close()

	got := make([]byte, 100)
	n, err := rb.ReadAt(got, 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[5000:5100], got)

	// Spanning a segment boundary.
	n, err = rb.ReadAt(got, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[1000:1100], got)

	// Going back to an already-evicted segment re-inflates it.
	n, err = rb.ReadAt(got, 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[5000:5100], got)
}

func TestReplayBufSize(t *testing.T) {
	data := replayTestData(3000)
	rb := NewReplayBuf(bytes.NewReader(data), ReplayOptions{SegmentSize: 1024, CacheEntries: 4})
	defer rb.Close()

	size, err := rb.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(3000), size)

	// The whole content must round-trip through capture + inflate.
	got := make([]byte, 3000)
	n, err := rb.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, 3000, n)
	assert.Equal(t, data, got)
}

func TestReplayBufReadPastEnd(t *testing.T) {
	rb := NewReplayBuf(bytes.NewReader(replayTestData(100)), ReplayOptions{SegmentSize: 64, CacheEntries: 2})
	defer rb.Close()

	got := make([]byte, 50)
	n, err := rb.ReadAt(got, 80)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 20, n)
}
