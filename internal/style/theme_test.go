package style

import (
	"testing"

	"github.com/standardbeagle/hl/internal/types"
)

func TestLookupTheme(t *testing.T) {
	for _, name := range []string{"", "default", "classic", "universal", "none"} {
		if _, err := LookupTheme(name); err != nil {
			t.Errorf("LookupTheme(%q): %v", name, err)
		}
	}
	if _, err := LookupTheme("solarized-disco"); err == nil {
		t.Error("unknown theme name should fail")
	}
}

func TestEveryThemeCoversEveryLevel(t *testing.T) {
	for name, build := range themes {
		theme := build()
		for lvl := types.LevelUnset; lvl <= types.LevelError; lvl++ {
			if theme.PackFor(lvl) == nil {
				t.Errorf("theme %q has no pack for level %v", name, lvl)
			}
		}
	}
}

func TestNoneThemeEmitsNoEscapes(t *testing.T) {
	theme := NoneTheme()
	pack := theme.PackFor(types.LevelError)
	for e := Element(0); e < numElements; e++ {
		if _, ok := pack.Lookup(e); ok {
			t.Errorf("none theme should not style element %d", e)
		}
	}
}

func TestDefaultThemeLevelsDiffer(t *testing.T) {
	theme := DefaultTheme()
	info, ok := theme.PackFor(types.LevelInfo).Lookup(ElementLevel)
	if !ok {
		t.Fatal("info level should be styled")
	}
	errStyle, ok := theme.PackFor(types.LevelError).Lookup(ElementLevel)
	if !ok {
		t.Fatal("error level should be styled")
	}
	if info.equal(errStyle) {
		t.Error("info and error levels should not share a style")
	}
}
