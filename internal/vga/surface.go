// Package vga models the VGA text-mode video surface: a fixed grid of
// two-byte cells (character byte + attribute byte) plus the hardware
// cursor latch. A terminal renders into either the live surface or an
// off-screen backing surface with identical semantics.
package vga

const (
	Cols = 80
	Rows = 25

	// DefaultAttr is light grey on black, the attribute every cell gets
	// on clear.
	DefaultAttr = 0x07

	bytesPerCell = 2
	bytesPerRow  = Cols * bytesPerCell

	// Size is the size of the surface in bytes.
	Size = Rows * bytesPerRow
)

// Surface is one text-mode framebuffer. The zero value is a valid, blank
// surface (all-zero cells render as blanks, matching real video memory
// after a scroll).
type Surface struct {
	mem [Size]byte

	// Hardware cursor latch. Mirrors the VGA CRTC cursor-location
	// registers; purely cosmetic, the line discipline tracks its own
	// cursor position.
	cursorX, cursorY int
}

// NewSurface returns a surface cleared to spaces with the default
// attribute, the state the boot code leaves video memory in.
func NewSurface() *Surface {
	s := &Surface{}
	s.Clear()
	return s
}

// SetCell writes one character cell. Out-of-range coordinates are
// ignored.
func (s *Surface) SetCell(x, y int, ch, attr byte) {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return
	}
	off := (y*Cols + x) * bytesPerCell
	s.mem[off] = ch
	s.mem[off+1] = attr
}

// CharAt returns the character byte at the given cell, or 0 when out of
// range.
func (s *Surface) CharAt(x, y int) byte {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return 0
	}
	return s.mem[(y*Cols+x)*bytesPerCell]
}

// AttrAt returns the attribute byte at the given cell, or 0 when out of
// range.
func (s *Surface) AttrAt(x, y int) byte {
	if x < 0 || x >= Cols || y < 0 || y >= Rows {
		return 0
	}
	return s.mem[(y*Cols+x)*bytesPerCell+1]
}

// ScrollUp shifts the whole grid up by exactly one row and zeroes the
// newly exposed bottom row. It does not touch the cursor; callers adjust
// the row themselves after scrolling.
func (s *Surface) ScrollUp() {
	copy(s.mem[:Size-bytesPerRow], s.mem[bytesPerRow:])
	for i := Size - bytesPerRow; i < Size; i += bytesPerCell {
		s.mem[i] = 0
		s.mem[i+1] = 0
	}
}

// Clear fills every cell with a space and the default attribute.
func (s *Surface) Clear() {
	for i := 0; i < Size; i += bytesPerCell {
		s.mem[i] = ' '
		s.mem[i+1] = DefaultAttr
	}
}

// SetCursor latches the hardware cursor position.
func (s *Surface) SetCursor(x, y int) {
	s.cursorX, s.cursorY = x, y
}

// Cursor returns the latched hardware cursor position.
func (s *Surface) Cursor() (x, y int) {
	return s.cursorX, s.cursorY
}

// CopyFrom copies another surface's contents and cursor into this one.
// Used when the display switches terminals: the incoming terminal's
// backing surface is blitted onto the live surface.
func (s *Surface) CopyFrom(src *Surface) {
	s.mem = src.mem
	s.cursorX, s.cursorY = src.cursorX, src.cursorY
}

// Snapshot returns a copy of the raw cell memory. The renderer works on
// snapshots so it never races with interrupt-driven writes.
func (s *Surface) Snapshot() []byte {
	out := make([]byte, Size)
	copy(out, s.mem[:])
	return out
}
