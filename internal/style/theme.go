package style

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/hl/internal/types"
)

func colorPtr(c Color) *Color { return &c }

func faint(c Color) Style {
	return Style{Foreground: colorPtr(c), HasFlags: true, Flags: FlagFaint, FlagOp: OpOr}
}

func buildDefaultPack(levelFg Color) *StylePack {
	p := NewStylePack()
	p.Add(ElementTime, faint(Plain(Black)))
	p.Add(ElementLevel, Style{Foreground: colorPtr(levelFg), HasFlags: true, Flags: FlagBold, FlagOp: OpOr})
	p.Add(ElementDelimiter, faint(Plain(Black)))
	p.Add(ElementLogger, Style{Foreground: colorPtr(Plain(Blue))})
	p.Add(ElementCaller, faint(Plain(Black)))
	p.Add(ElementAtSign, faint(Plain(Black)))
	p.Add(ElementMessage, Style{HasFlags: true, Flags: FlagBold, FlagOp: OpOr})
	p.Add(ElementFieldKey, Style{Foreground: colorPtr(Plain(Green))})
	p.Add(ElementEqualSign, faint(Plain(Black)))
	p.Add(ElementString, Style{Foreground: colorPtr(DefaultColor)})
	p.Add(ElementQuote, faint(Plain(Black)))
	p.Add(ElementNumber, Style{Foreground: colorPtr(Plain(Cyan))})
	p.Add(ElementBoolean, Style{Foreground: colorPtr(Plain(Yellow))})
	p.Add(ElementNull, faint(Plain(Black)))
	p.Add(ElementBrace, faint(Plain(Black)))
	p.Add(ElementComma, faint(Plain(Black)))
	p.Add(ElementEllipsis, faint(Plain(Black)))
	return p
}

// DefaultTheme returns the built-in color scheme: one accent color per
// level, shared neutral styling for structural punctuation.
func DefaultTheme() *Theme {
	t := &Theme{}
	t.packs[types.LevelDebug] = buildDefaultPack(Plain(Magenta))
	t.packs[types.LevelInfo] = buildDefaultPack(Plain(Green))
	t.packs[types.LevelWarning] = buildDefaultPack(Plain(Yellow))
	t.packs[types.LevelError] = buildDefaultPack(Plain(Red))
	t.defPack = buildDefaultPack(Plain(White))
	t.packs[types.LevelUnset] = t.defPack
	return t
}

// buildClassicPack colors the whole record body per level instead of just
// the mnemonic, the look of older syslog colorizers.
func buildClassicPack(body Color, bold bool) *StylePack {
	p := NewStylePack()
	base := Style{Foreground: colorPtr(body)}
	if bold {
		base.HasFlags = true
		base.Flags = FlagBold
		base.FlagOp = OpOr
	}
	p.Add(ElementTime, faint(body))
	p.Add(ElementLevel, base)
	p.Add(ElementDelimiter, faint(body))
	p.Add(ElementLogger, base)
	p.Add(ElementCaller, faint(body))
	p.Add(ElementAtSign, faint(body))
	p.Add(ElementMessage, base)
	p.Add(ElementFieldKey, faint(body))
	p.Add(ElementEqualSign, faint(body))
	p.Add(ElementString, base)
	p.Add(ElementQuote, faint(body))
	p.Add(ElementNumber, base)
	p.Add(ElementBoolean, base)
	p.Add(ElementNull, faint(body))
	p.Add(ElementBrace, faint(body))
	p.Add(ElementComma, faint(body))
	p.Add(ElementEllipsis, faint(body))
	return p
}

// ClassicTheme colors everything in a record by its level: debug dim,
// info default, warnings yellow, errors bold red.
func ClassicTheme() *Theme {
	t := &Theme{}
	t.packs[types.LevelDebug] = buildClassicPack(Plain(Black), false)
	t.packs[types.LevelInfo] = buildClassicPack(DefaultColor, false)
	t.packs[types.LevelWarning] = buildClassicPack(Plain(Yellow), false)
	t.packs[types.LevelError] = buildClassicPack(Plain(Red), true)
	t.defPack = buildClassicPack(DefaultColor, false)
	t.packs[types.LevelUnset] = t.defPack
	return t
}

// buildUniversalPack uses the 256-color palette for softer hues that read
// the same on light and dark backgrounds.
func buildUniversalPack(levelFg Color) *StylePack {
	p := NewStylePack()
	gray := Palette(243)
	p.Add(ElementTime, Style{Foreground: colorPtr(gray)})
	p.Add(ElementLevel, Style{Foreground: colorPtr(levelFg), HasFlags: true, Flags: FlagBold, FlagOp: OpOr})
	p.Add(ElementDelimiter, Style{Foreground: colorPtr(gray)})
	p.Add(ElementLogger, Style{Foreground: colorPtr(Palette(69))})
	p.Add(ElementCaller, Style{Foreground: colorPtr(gray)})
	p.Add(ElementAtSign, Style{Foreground: colorPtr(gray)})
	p.Add(ElementMessage, Style{Foreground: colorPtr(DefaultColor)})
	p.Add(ElementFieldKey, Style{Foreground: colorPtr(Palette(72))})
	p.Add(ElementEqualSign, Style{Foreground: colorPtr(gray)})
	p.Add(ElementString, Style{Foreground: colorPtr(DefaultColor)})
	p.Add(ElementQuote, Style{Foreground: colorPtr(gray)})
	p.Add(ElementNumber, Style{Foreground: colorPtr(Palette(74))})
	p.Add(ElementBoolean, Style{Foreground: colorPtr(Palette(179))})
	p.Add(ElementNull, Style{Foreground: colorPtr(gray)})
	p.Add(ElementBrace, Style{Foreground: colorPtr(gray)})
	p.Add(ElementComma, Style{Foreground: colorPtr(gray)})
	p.Add(ElementEllipsis, Style{Foreground: colorPtr(gray)})
	return p
}

// UniversalTheme is the 256-color variant of the default look.
func UniversalTheme() *Theme {
	t := &Theme{}
	t.packs[types.LevelDebug] = buildUniversalPack(Palette(135))
	t.packs[types.LevelInfo] = buildUniversalPack(Palette(71))
	t.packs[types.LevelWarning] = buildUniversalPack(Palette(178))
	t.packs[types.LevelError] = buildUniversalPack(Palette(167))
	t.defPack = buildUniversalPack(Palette(250))
	t.packs[types.LevelUnset] = t.defPack
	return t
}

var themes = map[string]func() *Theme{
	"default":   DefaultTheme,
	"classic":   ClassicTheme,
	"universal": UniversalTheme,
	"none":      NoneTheme,
}

// LookupTheme resolves a theme by name. The error lists the known names so
// a typo on the command line is self-explanatory.
func LookupTheme(name string) (*Theme, error) {
	if name == "" {
		name = "default"
	}
	if build, ok := themes[name]; ok {
		return build(), nil
	}
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown theme %q (have %v)", name, names)
}
