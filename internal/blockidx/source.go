package blockidx

import (
	"io"

	"github.com/standardbeagle/hl/internal/input"
)

// IndexSource returns the Index for src, loading it from cache when the
// cached copy still matches the source's size and modification time and
// building (then saving) it otherwise. Replay-buffered sources have no
// stable identity across runs, so they always build and never save.
func IndexSource(ix *Indexer, cache *Cache, src *input.SortSource) (*Index, error) {
	cacheable := cache != nil && !src.Replayed
	if cacheable {
		if idx, ok := cache.Load(src.Name, src.Size, src.ModifiedSec, src.ModifiedNsec); ok {
			return idx, nil
		}
	}
	r := io.NewSectionReader(src.Seekable, 0, int64(src.Size))
	idx, err := ix.Build(r, src.Name, src.Size, src.ModifiedSec, src.ModifiedNsec)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := cache.Save(src.Name, idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
