// Package terminal implements the per-terminal line discipline: the
// keyboard input buffer, the cursor and on-screen rendering into a VGA
// surface, and the blocking read protocol used by the file-descriptor
// layer. There is no scheduler underneath this code; the blocking read
// synchronizes with the keyboard interrupt purely through the CPU
// interrupt-enable gate.
package terminal

import (
	"github.com/tinyrange/minikernel/internal/cpu"
	"github.com/tinyrange/minikernel/internal/vga"
)

// InputBufSize is the capacity of the per-terminal keyboard input
// buffer. Reads are clamped to this size; keystrokes beyond it are
// dropped silently.
const InputBufSize = 128

// inputBuf is a bounded insertion-order buffer of raw input bytes. The
// producer is the keyboard interrupt handler; the consumer is the
// blocking read. Both sides run under the interrupt gate, which is the
// only synchronization between them.
type inputBuf struct {
	buf   [InputBufSize]byte
	count int
}

// cursorPos tracks the cursor for one terminal.
type cursorPos struct {
	// logicalX is the x-position in the current logical line. It can
	// extend beyond the screen width; that is what lets backspace cross
	// a wrapped screen line without crossing into output the user never
	// typed. Reset to 0 on newline.
	logicalX int

	// screenX is the clamped on-screen column, always in [0, Cols).
	screenX int

	// screenY is the on-screen row.
	screenY int
}

// Terminal is one terminal slot: input buffer, cursor, and the surface
// it currently renders to (the live video surface when displayed, an
// off-screen backing surface otherwise).
type Terminal struct {
	gate *cpu.Gate

	input  inputBuf
	cursor cursorPos

	surface *vga.Surface
	backing *vga.Surface

	// vidmap is set when the process running in this terminal has
	// mapped the video surface into its own address space.
	vidmap bool
}

// Read blocks until the input buffer holds either a full line (a
// newline byte) or enough bytes to satisfy the request, then copies the
// readable prefix into buf and returns the number of bytes delivered.
// If a newline is present, everything up to and including it is
// returned. The data is never NUL-terminated. Requests larger than the
// input buffer are clamped to its capacity.
//
// There is no timeout and no cancellation: a read waits indefinitely
// for keyboard input.
func (t *Terminal) Read(buf []byte) int {
	want := len(buf)
	if want > InputBufSize {
		want = InputBufSize
	}

	// The whole inspect-copy-compact sequence runs with interrupts
	// disabled. The only point interrupts are enabled is inside the
	// atomic enable-and-halt, never around buffer manipulation.
	t.gate.Disable()
	n := t.waitReadable(want)
	copy(buf[:n], t.input.buf[:n])
	copy(t.input.buf[:], t.input.buf[n:t.input.count])
	t.input.count -= n
	t.gate.Enable()
	return n
}

// waitReadable blocks until the read condition is met and returns the
// number of bytes to deliver. Called with the gate held; wakes on any
// interrupt and re-checks.
func (t *Terminal) waitReadable(want int) int {
	for want > t.input.count {
		for i := 0; i < t.input.count; i++ {
			if t.input.buf[i] == '\n' {
				return i + 1
			}
		}
		t.gate.EnableAndHalt()
	}
	return want
}

// Write writes every byte in buf to the terminal at the current cursor
// position and returns the number of bytes written. It never blocks.
func (t *Terminal) Write(buf []byte) int {
	t.gate.Disable()
	for _, c := range buf {
		t.putChar(c)
	}
	t.gate.Enable()
	return len(buf)
}

// Clear clears the terminal's grid and resets the cursor. The input
// buffer is untouched.
func (t *Terminal) Clear() {
	t.gate.Disable()
	t.clear()
	t.gate.Enable()
}

// Open readies the terminal for the file-descriptor layer.
func (t *Terminal) Open() error { return nil }

// Close releases the terminal for the file-descriptor layer.
func (t *Terminal) Close() error { return nil }

// SetVidmap records whether the owning process has the video surface
// mapped.
func (t *Terminal) SetVidmap(present bool) {
	t.gate.Disable()
	t.vidmap = present
	t.gate.Enable()
}

// Vidmap reports the vidmap state.
func (t *Terminal) Vidmap() bool {
	t.gate.Disable()
	defer t.gate.Enable()
	return t.vidmap
}

// Cursor returns the logical column, screen column, and screen row.
func (t *Terminal) Cursor() (logicalX, screenX, screenY int) {
	t.gate.Disable()
	defer t.gate.Enable()
	return t.cursor.logicalX, t.cursor.screenX, t.cursor.screenY
}

// Buffered returns the number of bytes waiting in the input buffer.
func (t *Terminal) Buffered() int {
	t.gate.Disable()
	defer t.gate.Enable()
	return t.input.count
}

// putChar renders one byte at the cursor. Called with the gate held.
func (t *Terminal) putChar(c byte) {
	switch {
	case c == '\n' || c == '\r':
		t.cursor.logicalX = 0
		t.cursor.screenX = 0
		t.cursor.screenY++
		if t.cursor.screenY >= vga.Rows {
			t.surface.ScrollUp()
			t.cursor.screenY--
		}

	case c == '\b':
		// Backspace only erases characters typed on this logical line.
		if t.cursor.logicalX > 0 {
			t.cursor.logicalX--
			t.cursor.screenX--
			if t.cursor.screenX < 0 {
				t.cursor.screenY--
				t.cursor.screenX += vga.Cols
			}
			t.surface.SetCell(t.cursor.screenX, t.cursor.screenY, ' ', vga.DefaultAttr)
		}

	default:
		t.surface.SetCell(t.cursor.screenX, t.cursor.screenY, c, vga.DefaultAttr)

		// logicalX tracks the screen column but is not wrapped; the
		// excess is what future backspaces use to detect that the
		// cursor is still on a line the user typed.
		t.cursor.logicalX++
		t.cursor.screenX++
		if t.cursor.screenX >= vga.Cols {
			t.cursor.screenY++
			t.cursor.screenX -= vga.Cols
		}
		if t.cursor.screenY >= vga.Rows {
			t.surface.ScrollUp()
			t.cursor.screenY--
		}
	}

	t.surface.SetCursor(t.cursor.screenX, t.cursor.screenY)
}

// clear resets the grid and cursor. Called with the gate held.
func (t *Terminal) clear() {
	t.surface.Clear()
	t.cursor = cursorPos{}
	t.surface.SetCursor(0, 0)
}

// handleChar buffers and echoes one keyboard character. Called from
// interrupt context with the gate held. Backspace is only honored when
// the buffer is non-empty; a full buffer drops the keystroke silently
// rather than blocking the interrupt path.
func (t *Terminal) handleChar(c byte) {
	if c == '\b' {
		if t.input.count > 0 {
			t.input.count--
			t.putChar(c)
		}
		return
	}
	if t.input.count < InputBufSize {
		t.input.buf[t.input.count] = c
		t.input.count++
		t.putChar(c)
	}
}

// clearInput discards buffered input. Called with the gate held.
func (t *Terminal) clearInput() {
	t.input.count = 0
}
