package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/hl/internal/types"
)

func TestResolvedConcurrency_ZeroMeansAuto(t *testing.T) {
	s := Default()
	s.Concurrency = 0
	assert.GreaterOrEqual(t, s.ResolvedConcurrency(), 1)

	s.Concurrency = 7
	assert.Equal(t, 7, s.ResolvedConcurrency())
}

func TestParsedMinLevel(t *testing.T) {
	cases := []struct {
		in   string
		want types.Level
	}{
		{"", types.LevelUnset},
		{"debug", types.LevelDebug},
		{"info", types.LevelInfo},
		{"warning", types.LevelWarning},
		{"warn", types.LevelWarning},
		{"error", types.LevelError},
	}
	for _, tc := range cases {
		s := Default()
		s.MinLevel = tc.in
		got, err := s.ParsedMinLevel()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestParsedMinLevel_Unknown(t *testing.T) {
	s := Default()
	s.MinLevel = "bogus"
	_, err := s.ParsedMinLevel()
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"4096", 4096},
		{"64K", 64 << 10},
		{"64KiB", 64 << 10},
		{"64KB", 64 << 10},
		{"2M", 2 << 20},
		{"1MiB", 1 << 20},
		{"1G", 1 << 30},
		{"512B", 512},
		{" 8K ", 8 << 10},
	}
	for _, tc := range cases {
		got, err := ParseSize("buffer-size", tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "K", "-1", "12Q", "1.5M"} {
		_, err := ParseSize("buffer-size", in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParsedTimeRange(t *testing.T) {
	s := Default()
	s.Since = "2020-06-27T00:00:00Z"
	s.Until = "1593302400"
	r, err := s.ParsedTimeRange()
	require.NoError(t, err)
	require.True(t, r.HasSince)
	require.True(t, r.HasUntil)
	assert.Equal(t, types.Timestamp{Sec: 1593216000}, r.Since)
	assert.Equal(t, types.Timestamp{Sec: 1593302400}, r.Until)

	assert.True(t, r.Contains(types.Timestamp{Sec: 1593250000}))
	assert.False(t, r.Contains(types.Timestamp{Sec: 1593215999}))
	assert.False(t, r.Contains(types.Timestamp{Sec: 1593302401}))
}

func TestParsedTimeRange_OpenAndInvalid(t *testing.T) {
	s := Default()
	r, err := s.ParsedTimeRange()
	require.NoError(t, err)
	assert.True(t, r.IsOpen())
	assert.True(t, r.Contains(types.Timestamp{Sec: -1 << 40}))

	s.Since = "next tuesday"
	_, err = s.ParsedTimeRange()
	assert.Error(t, err)
}

func TestLoadKDLFile_MissingFileKeepsDefaults(t *testing.T) {
	base := Default()
	got, err := LoadKDLFile(filepath.Join(t.TempDir(), "missing.kdl"), base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestLoadKDLFile_OverridesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hl.kdl")
	content := `
time-format "%Y-%m-%d %T"
theme "dark"
concurrency 4
fields {
    time "ts" "time"
    ignore "debug_id"
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadKDLFile(path, Default())
	require.NoError(t, err)
	assert.Equal(t, "%Y-%m-%d %T", got.TimeFormat)
	assert.Equal(t, "dark", got.ThemeName)
	assert.Equal(t, 4, got.Concurrency)
	assert.Equal(t, []string{"ts", "time"}, got.Parser.TimeFieldNames)
	_, ignored := got.Parser.IgnoredKeys["debug_id"]
	assert.True(t, ignored)
}
