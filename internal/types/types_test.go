package types

import "testing"

func TestTimestampCompare(t *testing.T) {
	cases := []struct {
		a, b Timestamp
		want int
	}{
		{Timestamp{1, 0}, Timestamp{2, 0}, -1},
		{Timestamp{2, 0}, Timestamp{1, 0}, 1},
		{Timestamp{1, 5}, Timestamp{1, 9}, -1},
		{Timestamp{1, 9}, Timestamp{1, 5}, 1},
		{Timestamp{1, 5}, Timestamp{1, 5}, 0},
		{Timestamp{-2, 0}, Timestamp{-1, 0}, -1},
	}
	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestMinLevelMask(t *testing.T) {
	if got := MinLevelMask(LevelWarning); got != FlagLevelWarning|FlagLevelError {
		t.Errorf("MinLevelMask(warning) = %b", got)
	}
	if got := MinLevelMask(LevelDebug); got != FlagLevelDebug|FlagLevelInfo|FlagLevelWarning|FlagLevelError {
		t.Errorf("MinLevelMask(debug) = %b", got)
	}
}

func TestTimeRangeOverlaps(t *testing.T) {
	r := TimeRange{
		HasSince: true, Since: Timestamp{Sec: 100},
		HasUntil: true, Until: Timestamp{Sec: 200},
	}
	cases := []struct {
		min, max Timestamp
		want     bool
	}{
		{Timestamp{Sec: 50}, Timestamp{Sec: 99}, false},
		{Timestamp{Sec: 50}, Timestamp{Sec: 100}, true},
		{Timestamp{Sec: 150}, Timestamp{Sec: 160}, true},
		{Timestamp{Sec: 200}, Timestamp{Sec: 300}, true},
		{Timestamp{Sec: 201}, Timestamp{Sec: 300}, false},
		{Timestamp{Sec: 50}, Timestamp{Sec: 300}, true},
	}
	for _, c := range cases {
		if got := r.Overlaps(c.min, c.max); got != c.want {
			t.Errorf("Overlaps(%v, %v) = %v, want %v", c.min, c.max, got, c.want)
		}
	}

	open := TimeRange{}
	if !open.Overlaps(Timestamp{Sec: -1000}, Timestamp{Sec: -999}) {
		t.Error("open range must overlap everything")
	}
}
