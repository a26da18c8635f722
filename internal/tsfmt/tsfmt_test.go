package tsfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/hl/internal/types"
)

func TestParse_RFC3339Variants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want types.Timestamp
	}{
		{"utc-z", `"2020-06-27T00:00:00Z"`, types.Timestamp{Sec: 1593216000}},
		{"utc-z-millis", `"2020-06-27T00:00:00.123Z"`, types.Timestamp{Sec: 1593216000, Nsec: 123_000_000}},
		{"no-offset-assumes-utc", `"2020-06-27T00:00:00"`, types.Timestamp{Sec: 1593216000}},
		{"positive-offset", `"2020-06-27T02:00:00+02:00"`, types.Timestamp{Sec: 1593216000}},
		{"negative-offset-no-colon", `"2020-06-26T22:00:00-0200"`, types.Timestamp{Sec: 1593216000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.in)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_NumericMagnitudeDispatch(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want types.Timestamp
	}{
		{"seconds", "1593216000", types.Timestamp{Sec: 1593216000}},
		{"milliseconds", "1593216000123", types.Timestamp{Sec: 1593216000, Nsec: 123_000_000}},
		{"microseconds", "1593216000123456", types.Timestamp{Sec: 1593216000, Nsec: 123_456_000}},
		{"nanoseconds", "1593216000123456789", types.Timestamp{Sec: 1593216000, Nsec: 123_456_789}},
		{"float-seconds", "1593216000.5", types.Timestamp{Sec: 1593216000, Nsec: 500_000_000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.in)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", `"not-a-time"`, "abc"} {
		_, ok := Parse(in)
		assert.False(t, ok, "input %q should not parse", in)
	}
}

func TestFormatter_CompileAndAppend(t *testing.T) {
	f, err := Compile("%Y-%m-%d %H:%M:%S.%3N", "UTC")
	require.NoError(t, err)
	got := f.Format(types.Timestamp{Sec: 1593216000, Nsec: 123_456_789})
	assert.Equal(t, "2020-06-27 00:00:00.123", got)
}

func TestFormatter_DefaultPattern(t *testing.T) {
	f, err := Compile("%y-%m-%d %T.%3N", "UTC")
	require.NoError(t, err)
	got := f.Format(types.Timestamp{Sec: 1593216000})
	assert.Equal(t, "20-06-27 00:00:00.000", got)
}

func TestFormatter_ExtendedSpecifiers(t *testing.T) {
	// 2020-06-27 was a Saturday; 14:30:05 UTC.
	ts := types.Timestamp{Sec: 1593268205}
	cases := []struct {
		format string
		want   string
	}{
		{"%a %A", "Sat Saturday"},
		{"%b %h %B", "Jun Jun June"},
		{"%I%p", "02PM"},
		{"%I %P", "02 pm"},
		{"%e", "27"},
		{"%j", "179"},
		{"%C%y", "2020"},
		{"%s", "1593268205"},
		{"%d/%m/%Y %H:%M", "27/06/2020 14:30"},
		{"100%% %Q", "100% %Q"},
	}
	for _, tc := range cases {
		f, err := Compile(tc.format, "UTC")
		require.NoError(t, err, tc.format)
		assert.Equal(t, tc.want, f.Format(ts), "format %q", tc.format)
	}
}

func TestFormatter_SpacePaddedDay(t *testing.T) {
	f, err := Compile("%e", "UTC")
	require.NoError(t, err)
	// 2020-06-07.
	got := f.Format(types.Timestamp{Sec: 1591488000})
	assert.Equal(t, " 7", got)
}

func TestFormatter_TwelveHourMidnight(t *testing.T) {
	f, err := Compile("%I%p", "UTC")
	require.NoError(t, err)
	got := f.Format(types.Timestamp{Sec: 1593216000}) // 00:00 UTC
	assert.Equal(t, "12AM", got)
}

func TestReformatRFC3339_FastPath(t *testing.T) {
	out, ok := ReformatRFC3339(nil, "2020-06-27T00:00:00.123Z")
	require.True(t, ok)
	assert.Equal(t, "20-06-27 00:00:00.123", string(out))
}

func TestReformatRFC3339_RejectsNonMatchingShape(t *testing.T) {
	_, ok := ReformatRFC3339(nil, "2020-06-27T00:00:00+02:00")
	assert.False(t, ok)
}
