package blockidx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/diag"
	"github.com/standardbeagle/hl/internal/errz"
	"github.com/standardbeagle/hl/internal/types"
)

// Cache persists indices under <root>/<hex sha256(params)>/<hex
// sha256(abs source path)>. Hashing the parsing parameters into the first
// path component invalidates every cached index at once whenever the
// formatting-relevant configuration changes.
type Cache struct {
	root      string
	paramHash string
}

// NewCache derives the parameter hash from everything that affects what an
// index records: segment sizing and the predefined field recognition lists.
func NewCache(root string, bufferSize, maxMessageSize int, ps config.ParserSettings) *Cache {
	h := sha256.New()
	fmt.Fprintf(h, "buffer-size=%d\nmax-message-size=%d\n", bufferSize, maxMessageSize)
	writeList := func(name string, list []string) {
		fmt.Fprintf(h, "%s=", name)
		for _, v := range list {
			fmt.Fprintf(h, "%q,", v)
		}
		fmt.Fprintln(h)
	}
	writeList("time", ps.TimeFieldNames)
	writeList("message", ps.MessageFieldNames)
	writeList("logger", ps.LoggerFieldNames)
	writeList("caller", ps.CallerFieldNames)
	for _, v := range ps.LevelField.Variants {
		writeList("level-names", v.Names)
		for lvl := types.LevelDebug; lvl <= types.LevelError; lvl++ {
			writeList("level-"+lvl.String(), v.Values[lvl])
		}
	}
	return &Cache{
		root:      root,
		paramHash: hex.EncodeToString(h.Sum(nil)),
	}
}

// pathFor returns the cache file for sourcePath.
func (c *Cache) pathFor(sourcePath string) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(c.root, c.paramHash, hex.EncodeToString(sum[:]))
}

// Load returns the cached index for sourcePath if one exists, parses
// cleanly, and still matches the source's size and modification time.
// Any corruption is reported through diag and treated as a miss.
func (c *Cache) Load(sourcePath string, size uint64, modSec int64, modNsec uint32) (*Index, bool) {
	p := c.pathFor(sourcePath)
	f, err := os.Open(p)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	idx, err := Read(f, p)
	if err != nil {
		diag.Printf("index cache %s: %v (rebuilding)", p, err)
		return nil, false
	}
	if !idx.Valid(size, modSec, modNsec) {
		return nil, false
	}
	return idx, true
}

// Save writes idx for sourcePath, creating the cache directory tree as
// needed. The file is written to a temporary name and renamed into place so
// a concurrent run never observes a torn index.
func (c *Cache) Save(sourcePath string, idx *Index) error {
	p := c.pathFor(sourcePath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errz.NewIOError("mkdir", filepath.Dir(p), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return errz.NewIOError("create", p, err)
	}
	defer os.Remove(tmp.Name())
	if err := Write(tmp, idx); err != nil {
		tmp.Close()
		return errz.NewIOError("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errz.NewIOError("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errz.NewIOError("rename", p, err)
	}
	return nil
}
