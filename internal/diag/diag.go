// Package diag is hl's diagnostic-output shim: a gated writer for
// non-fatal progress/diagnostic messages (parse errors, index
// rebuild notices) that never touches the record output stream itself.
package diag

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	enabled bool
	out     io.Writer = os.Stderr
)

// SetEnabled turns diagnostic output on or off. Disabled by default; the CLI
// enables it via a hidden flag for troubleshooting index/cache behavior.
func SetEnabled(v bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = v
}

// SetOutput redirects diagnostic output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Enabled reports whether diagnostic output is currently active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Printf writes a diagnostic line if diagnostics are enabled. Safe for
// concurrent use by pipeline workers.
func Printf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return
	}
	fmt.Fprintf(out, format+"\n", args...)
}
