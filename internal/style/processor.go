package style

// DefaultStackDepth is the default bound on the foreground/background/flags
// stacks. The formatter nests styles a handful of levels deep at most;
// exceeding the bound is a programming error, not an input condition.
const DefaultStackDepth = 16

type stackState[T comparable] struct {
	stack  []T
	synced T
}

func newStackState[T comparable](depth int) stackState[T] {
	return stackState[T]{stack: make([]T, 0, depth)}
}

func (s *stackState[T]) top(zero T) T {
	if len(s.stack) == 0 {
		return zero
	}
	return s.stack[len(s.stack)-1]
}

func (s *stackState[T]) push(depth int, v T) {
	if len(s.stack) >= depth {
		panic("style: stack depth exceeded")
	}
	s.stack = append(s.stack, v)
}

func (s *stackState[T]) pop() {
	if len(s.stack) == 0 {
		panic("style: pop on empty style stack")
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// Processor is the runtime SGR engine: three bounded stacks (foreground,
// background, flags) plus a synced snapshot of what has actually been
// emitted. Instructions mutate the stacks and mark state dirty; the next
// annotated write computes the minimal diff and emits one "ESC [ ... m"
// group.
type Processor struct {
	depth int
	fg    stackState[Color]
	bg    stackState[Color]
	flags stackState[Flags]
	dirty bool
	out   *[]byte
}

// NewProcessor returns a Processor appending to dst (dst is a pointer so
// the caller's buffer variable is updated in place, the way append() needs
// to be re-assigned).
func NewProcessor(dst *[]byte) *Processor {
	return NewProcessorDepth(dst, DefaultStackDepth)
}

// NewProcessorDepth is NewProcessor with an explicit stack bound.
func NewProcessorDepth(dst *[]byte, depth int) *Processor {
	return &Processor{
		depth: depth,
		fg:    newStackState[Color](depth),
		bg:    newStackState[Color](depth),
		flags: newStackState[Flags](depth),
		out:   dst,
	}
}

func (p *Processor) soil() { p.dirty = true }

// PushForeground pushes a new foreground color onto the stack.
func (p *Processor) PushForeground(c Color) { p.fg.push(p.depth, c); p.soil() }

// PopForeground restores the foreground color active before the matching push.
func (p *Processor) PopForeground() { p.fg.pop(); p.soil() }

// PushBackground pushes a new background color onto the stack.
func (p *Processor) PushBackground(c Color) { p.bg.push(p.depth, c); p.soil() }

// PopBackground restores the background color active before the matching push.
func (p *Processor) PopBackground() { p.bg.pop(); p.soil() }

// PushFlags combines flags into the current flag stack top using op and
// pushes the result.
func (p *Processor) PushFlags(flags Flags, op Operator) {
	cur := p.flags.top(0)
	p.flags.push(p.depth, op.apply(cur, flags))
	p.soil()
}

// PopFlags restores the flag set active before the matching push.
func (p *Processor) PopFlags() { p.flags.pop(); p.soil() }

// ResetAll clears all stacks and synced state and immediately emits a full
// SGR reset, independent of the usual diff-based sync.
func (p *Processor) ResetAll() {
	p.fg = newStackState[Color](p.depth)
	p.bg = newStackState[Color](p.depth)
	p.flags = newStackState[Flags](p.depth)
	p.dirty = false
	*p.out = append(*p.out, resetSeq...)
}

// PushStyle pushes whichever of s's foreground/background/flags are set;
// the caller must later call PopStyle with the same "which" result to
// balance the stacks.
func (p *Processor) PushStyle(s Style) (pushedFg, pushedBg, pushedFlags bool) {
	if s.Foreground != nil {
		p.PushForeground(*s.Foreground)
		pushedFg = true
	}
	if s.Background != nil {
		p.PushBackground(*s.Background)
		pushedBg = true
	}
	if s.HasFlags {
		p.PushFlags(s.Flags, s.FlagOp)
		pushedFlags = true
	}
	return
}

// PopStyle undoes exactly the pushes PushStyle reported.
func (p *Processor) PopStyle(pushedFg, pushedBg, pushedFlags bool) {
	if pushedFlags {
		p.PopFlags()
	}
	if pushedBg {
		p.PopBackground()
	}
	if pushedFg {
		p.PopForeground()
	}
}

// WriteByte writes a single byte, syncing all styling channels first.
func (p *Processor) WriteByte(b byte) {
	p.sync(AnnotAll)
	*p.out = append(*p.out, b)
}

// Write writes data, syncing all styling channels first.
func (p *Processor) Write(data []byte) {
	p.sync(AnnotAll)
	*p.out = append(*p.out, data...)
}

// WriteByteAnnotated writes a single byte, syncing only the styling
// channels declared by annotations.
func (p *Processor) WriteByteAnnotated(b byte, annotations Annotations) {
	p.sync(annotations)
	*p.out = append(*p.out, b)
}

// WriteAnnotated writes data, syncing only the styling channels declared by
// annotations.
func (p *Processor) WriteAnnotated(data []byte, annotations Annotations) {
	p.sync(annotations)
	*p.out = append(*p.out, data...)
}

// Close emits a full SGR reset if any styling state has been written, so a
// record never leaves color or flags bleeding into whatever follows it.
// Unstyled output stays byte-identical to its input text. Callers must call
// Close exactly once when done with a Processor.
func (p *Processor) Close() {
	if p.fg.synced != DefaultColor || p.bg.synced != DefaultColor || p.flags.synced != 0 {
		*p.out = append(*p.out, resetSeq...)
	}
}

func (p *Processor) sync(annotations Annotations) {
	if p.dirty {
		p.doSync(annotations)
	}
}

func (p *Processor) doSync(annotations Annotations) {
	csb := newCommandSequenceBuilder(p.out)

	bg := p.bg.top(DefaultColor)
	fg := p.fg.top(DefaultColor)
	flags := p.flags.top(0)

	if p.bg.synced != bg && annotations.contains(AnnotBackground) {
		csb.appendColor(bg, codeSetFirstBackgroundColor)
		p.bg.synced = bg
	}
	if p.fg.synced != fg && annotations.contains(AnnotForeground) {
		csb.appendColor(fg, codeSetFirstForegroundColor)
		p.fg.synced = fg
	}

	if p.flags.synced != flags {
		p.dirty = false
		diff := p.flags.synced ^ flags

		for _, e := range dualSyncTable {
			if !e.annotations.intersects(annotations) {
				diff &^= e.f0 | e.f1
				p.dirty = true
				continue
			}
			setF0, setF1, reset := dualFlagSync(diff, flags, e.f0, e.f1)
			if reset {
				csb.appendCode(e.reset)
			}
			if setF0 {
				csb.appendCode(e.set0)
			}
			if setF1 {
				csb.appendCode(e.set1)
			}
		}
		for _, e := range singleSyncTable {
			if !e.annotations.intersects(annotations) {
				diff &^= e.flag
				p.dirty = true
				continue
			}
			if diff&e.flag != 0 {
				if flags&e.flag != 0 {
					csb.appendCode(e.set)
				} else {
					csb.appendCode(e.reset)
				}
			}
		}
		p.flags.synced &^= diff
		p.flags.synced |= flags & diff
	}

	csb.finish()
}

type dualSyncEntry struct {
	f0, f1      Flags
	set0, set1  commandCode
	reset       commandCode
	annotations Annotations
}

type singleSyncEntry struct {
	flag        Flags
	set, reset  commandCode
	annotations Annotations
}

// dualSyncTable covers the flag pairs that share one ANSI reset code;
// singleSyncTable covers the flags with a dedicated reset of their own.
var dualSyncTable = []dualSyncEntry{
	{FlagBold, FlagFaint, codeSetBold, codeSetFaint, codeResetBoldAndFaint, AnnotForeground},
	{FlagUnderlined, FlagDoublyUnderlined, codeSetUnderlined, codeSetDoublyUnderlined, codeResetAllUnderlines, AnnotForeground},
	{FlagSlowBlink, FlagRapidBlink, codeSetSlowBlink, codeSetRapidBlink, codeResetAllBlinks, AnnotAll},
	{FlagFramed, FlagEncircled, codeSetFramed, codeSetEncircled, codeResetFramedAndEncircled, AnnotAll},
	{FlagSubscript, FlagSuperscript, codeSetSubscript, codeSetSuperscript, codeResetSuperscriptAndSubscript, AnnotForeground},
}

var singleSyncTable = []singleSyncEntry{
	{FlagItalic, codeSetItalic, codeResetItalic, AnnotForeground},
	{FlagConcealed, codeSetConcealed, codeResetConcealed, AnnotForeground},
	{FlagCrossedOut, codeSetCrossedOut, codeResetCrossedOut, AnnotForeground},
	{FlagReversed, codeSetReversed, codeResetReversed, AnnotAll},
	{FlagOverlined, codeSetOverlined, codeResetOverlined, AnnotForeground},
}

// dualFlagSync computes the (set0, set1, reset) actions required to move a
// flag pair (f0, f1) from its synced state to target flags, given diff =
// synced ^ flags. When either flag must turn off, the shared reset fires
// and every surviving flag of the pair is set again.
func dualFlagSync(diff, flags, f0, f1 Flags) (setF0, setF1, reset bool) {
	if diff&(f0|f1) == 0 {
		return false, false, false
	}
	if (flags^diff)&diff&(f0|f1) != 0 {
		reset = true
		diff |= flags & (f0 | f1)
	}
	if diff&flags&f0 != 0 {
		setF0 = true
	}
	if diff&flags&f1 != 0 {
		setF1 = true
	}
	return
}
