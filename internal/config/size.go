package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/standardbeagle/hl/internal/errz"
)

var errBadSize = errors.New("invalid size")

// ParseSize parses a human-friendly byte size: a bare integer, or an
// integer with a K/M/G suffix (binary multiples; "KiB"/"KB"/"k" are all
// accepted as 1024).
func ParseSize(field, s string) (int, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, errz.NewConfigError(field, s, errBadSize)
	}
	num := in
	mult := 1
	for _, suffix := range []struct {
		names []string
		mult  int
	}{
		{[]string{"GiB", "GB", "G", "g"}, 1 << 30},
		{[]string{"MiB", "MB", "M", "m"}, 1 << 20},
		{[]string{"KiB", "KB", "K", "k"}, 1 << 10},
		{[]string{"B", "b"}, 1},
	} {
		matched := false
		for _, name := range suffix.names {
			if strings.HasSuffix(in, name) {
				num = strings.TrimSpace(in[:len(in)-len(name)])
				mult = suffix.mult
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return 0, errz.NewConfigError(field, s, errBadSize)
	}
	return n * mult, nil
}
