package style

import "strconv"

// commandCode is the numeric SGR parameter for a single ANSI command.
type commandCode uint8

const (
	codeSetBold                      commandCode = 1
	codeSetFaint                     commandCode = 2
	codeSetItalic                    commandCode = 3
	codeSetUnderlined                commandCode = 4
	codeSetSlowBlink                 commandCode = 5
	codeSetRapidBlink                commandCode = 6
	codeSetReversed                  commandCode = 7
	codeSetConcealed                 commandCode = 8
	codeSetCrossedOut                commandCode = 9
	codeSetDoublyUnderlined          commandCode = 21
	codeResetBoldAndFaint            commandCode = 22
	codeResetItalic                  commandCode = 23
	codeResetAllUnderlines           commandCode = 24
	codeResetAllBlinks               commandCode = 25
	codeResetReversed                commandCode = 27
	codeResetConcealed               commandCode = 28
	codeResetCrossedOut              commandCode = 29
	codeSetFirstForegroundColor      commandCode = 30
	codeResetForegroundColor         commandCode = 39
	codeSetFirstBackgroundColor      commandCode = 40
	codeResetBackgroundColor         commandCode = 49
	codeSetFramed                    commandCode = 51
	codeSetEncircled                 commandCode = 52
	codeSetOverlined                 commandCode = 53
	codeResetFramedAndEncircled      commandCode = 54
	codeResetOverlined               commandCode = 55
	codeSetSuperscript               commandCode = 73
	codeSetSubscript                 commandCode = 74
	codeResetSuperscriptAndSubscript commandCode = 75
)

const (
	beginSeq = "\x1b["
	nextSeq  = ";"
	endSeq   = "m"
	resetSeq = "\x1b[m"
)

func appendCode(dst []byte, c commandCode) []byte {
	return strconv.AppendUint(dst, uint64(c), 10)
}

// appendColor appends the SGR parameter(s) for color using base as the
// "first color" command code (30 for foreground, 40 for background).
func appendColor(dst []byte, c Color, base commandCode) []byte {
	switch c.Kind {
	case ColorBasic:
		if c.Bright {
			return strconv.AppendUint(dst, uint64(base)+60+uint64(c.Basic), 10)
		}
		return strconv.AppendUint(dst, uint64(base)+uint64(c.Basic), 10)
	case ColorPalette:
		dst = strconv.AppendUint(dst, uint64(base)+8, 10)
		dst = append(dst, ';', '5', ';')
		return strconv.AppendUint(dst, uint64(c.Code), 10)
	case ColorRGB:
		dst = strconv.AppendUint(dst, uint64(base)+8, 10)
		dst = append(dst, ';', '2', ';')
		dst = strconv.AppendUint(dst, uint64(c.R), 10)
		dst = append(dst, ';')
		dst = strconv.AppendUint(dst, uint64(c.G), 10)
		dst = append(dst, ';')
		return strconv.AppendUint(dst, uint64(c.B), 10)
	default: // ColorDefault
		return strconv.AppendUint(dst, uint64(base)+9, 10)
	}
}

// commandSequenceBuilder wraps a series of SGR commands in a single
// "ESC [ c1;c2;... m" group, writing nothing at all if no command is ever
// appended.
type commandSequenceBuilder struct {
	dst   *[]byte
	first bool
}

func newCommandSequenceBuilder(dst *[]byte) commandSequenceBuilder {
	return commandSequenceBuilder{dst: dst, first: true}
}

func (b *commandSequenceBuilder) appendCode(c commandCode) {
	b.begin()
	*b.dst = appendCode(*b.dst, c)
}

func (b *commandSequenceBuilder) appendColor(c Color, base commandCode) {
	b.begin()
	*b.dst = appendColor(*b.dst, c, base)
}

func (b *commandSequenceBuilder) begin() {
	if b.first {
		*b.dst = append(*b.dst, beginSeq...)
		b.first = false
	} else {
		*b.dst = append(*b.dst, nextSeq...)
	}
}

func (b *commandSequenceBuilder) finish() {
	if !b.first {
		*b.dst = append(*b.dst, endSeq...)
	}
}
