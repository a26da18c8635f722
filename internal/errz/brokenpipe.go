package errz

import (
	"errors"
	"io/fs"
	"syscall"
)

// isBrokenPipe recognizes EPIPE, bare or wrapped in an fs.PathError, which a
// writer sees when its downstream reader (e.g. `head`) has gone away. Other
// closed-file errors are not treated as a broken pipe.
func isBrokenPipe(err error) bool {
	if errors.Is(err, syscall.EPIPE) {
		return true
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr.Err, syscall.EPIPE)
	}
	return false
}
