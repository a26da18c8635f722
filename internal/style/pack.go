package style

import "github.com/standardbeagle/hl/internal/types"

// StylePack maps each Element to a deduplicated Style in its pool. A pack
// built with no styles at all (Theme "none") makes every lookup miss, so
// the formatter never pushes any instruction and no escape bytes are
// produced.
type StylePack struct {
	elements [numElements]int // index into styles, -1 = no style
	styles   []Style
}

// NewStylePack returns an empty pack where every element is unstyled.
func NewStylePack() *StylePack {
	p := &StylePack{}
	for i := range p.elements {
		p.elements[i] = -1
	}
	return p
}

// Add associates element with style, reusing an existing pool entry when an
// identical Style was already registered.
func (p *StylePack) Add(e Element, s Style) {
	for i, existing := range p.styles {
		if existing.equal(s) {
			p.elements[e] = i
			return
		}
	}
	p.styles = append(p.styles, s)
	p.elements[e] = len(p.styles) - 1
}

// Lookup returns the Style registered for e, if any.
func (p *StylePack) Lookup(e Element) (Style, bool) {
	idx := p.elements[e]
	if idx < 0 {
		return Style{}, false
	}
	return p.styles[idx], true
}

// Theme holds one StylePack per Level plus a default pack used when a
// record's level is unset or unrecognized.
type Theme struct {
	packs   [5]*StylePack // indexed by types.Level
	defPack *StylePack
}

// PackFor selects the StylePack for level, falling back to the default pack
// when no level-specific pack was registered.
func (t *Theme) PackFor(level types.Level) *StylePack {
	if p := t.packs[level]; p != nil {
		return p
	}
	return t.defPack
}

// NoneTheme returns a Theme where every element in every pack is unstyled,
// used for --no-color and the theme name "none".
func NoneTheme() *Theme {
	def := NewStylePack()
	t := &Theme{defPack: def}
	for i := range t.packs {
		t.packs[i] = def
	}
	return t
}
