package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/hl/internal/config"
	"github.com/standardbeagle/hl/internal/rawjson"
	"github.com/standardbeagle/hl/internal/types"
)

func parseLine(t *testing.T, line string) rawjson.RawRecord {
	t.Helper()
	raw, err := rawjson.Parse([]byte(line))
	require.NoError(t, err)
	return raw
}

func TestParse_RecognizesPredefinedFields(t *testing.T) {
	raw := parseLine(t, `{"ts":"2020-06-27T00:00:00Z","level":"info","msg":"hello","logger":"app","caller":"main.go:1","extra":42}`)
	ps := config.DefaultParserSettings()
	ps.NeedUnixTimestamp = true

	rec := Parse(raw, ps)
	require.True(t, rec.HasTime)
	require.True(t, rec.TimestampResolved)
	assert.Equal(t, types.Timestamp{Sec: 1593216000}, rec.Timestamp)
	assert.Equal(t, types.LevelInfo, rec.Level)
	require.True(t, rec.HasMessage)
	assert.Equal(t, `"hello"`, string(rec.Message))
	assert.Equal(t, "app", rec.Logger)
	assert.Equal(t, "main.go:1", rec.Caller)
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "extra", rec.Fields[0].Key)
	assert.Equal(t, "42", string(rec.Fields[0].Raw))
}

func TestParse_UnknownLevelSpellingStaysUnset(t *testing.T) {
	raw := parseLine(t, `{"ts":"2020-06-27T00:00:00Z","level":"trace","msg":"m"}`)
	rec := Parse(raw, config.DefaultParserSettings())
	assert.Equal(t, types.LevelUnset, rec.Level)
}

func TestParse_DeferredTimestampResolution(t *testing.T) {
	raw := parseLine(t, `{"ts":"2020-06-27T00:00:00Z","msg":"m"}`)
	ps := config.DefaultParserSettings()
	ps.NeedUnixTimestamp = false

	rec := Parse(raw, ps)
	require.True(t, rec.HasTime)
	assert.False(t, rec.TimestampResolved)

	ts, ok := rec.ResolveTimestamp()
	require.True(t, ok)
	assert.Equal(t, types.Timestamp{Sec: 1593216000}, ts)
}

func TestParse_FirstMatchWinsForDuplicateSlots(t *testing.T) {
	raw := parseLine(t, `{"msg":"first","message":"second"}`)
	rec := Parse(raw, config.DefaultParserSettings())
	assert.Equal(t, `"first"`, string(rec.Message))
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "message", rec.Fields[0].Key)
}

func TestParse_IgnoredKeysAreDropped(t *testing.T) {
	ps := config.DefaultParserSettings()
	ps.IgnoredKeys = map[string]struct{}{"noise": {}}
	raw := parseLine(t, `{"msg":"m","noise":true,"kept":1}`)
	rec := Parse(raw, ps)
	require.Len(t, rec.Fields, 1)
	assert.Equal(t, "kept", rec.Fields[0].Key)
}

func TestParse_PreservesFieldOrder(t *testing.T) {
	raw := parseLine(t, `{"b":1,"a":2,"c":3}`)
	rec := Parse(raw, config.DefaultParserSettings())
	require.Len(t, rec.Fields, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{rec.Fields[0].Key, rec.Fields[1].Key, rec.Fields[2].Key})
}
