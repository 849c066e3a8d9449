// Package console is the host-terminal front end: it paints the
// machine's video surface onto the controlling terminal with ANSI
// sequences and turns host keystrokes back into keyboard scancodes.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/tinyrange/minikernel/internal/vga"
)

// vgaPalette maps the VGA 4-bit color indices onto the ANSI basic
// palette. The two orderings disagree (VGA puts blue at 1, ANSI puts
// red there), hence the table.
var vgaPalette = [16]ansi.BasicColor{
	ansi.Black, ansi.Blue, ansi.Green, ansi.Cyan,
	ansi.Red, ansi.Magenta, ansi.Yellow, ansi.White,
	ansi.BrightBlack, ansi.BrightBlue, ansi.BrightGreen, ansi.BrightCyan,
	ansi.BrightRed, ansi.BrightMagenta, ansi.BrightYellow, ansi.BrightWhite,
}

// Renderer turns video-surface snapshots into ANSI frames. It keeps the
// previous snapshot and only repaints rows that changed, so a frame for
// an idle screen is just a cursor move.
type Renderer struct {
	out  io.Writer
	last []byte
}

// NewRenderer returns a renderer writing frames to out. The first Frame
// call paints the whole grid.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Open switches the host terminal to the alternate screen and hides its
// cursor while the renderer owns the display.
func (r *Renderer) Open() error {
	_, err := io.WriteString(r.out, ansi.SetMode(ansi.AltScreenSaveCursorMode)+
		ansi.ResetMode(ansi.TextCursorEnableMode)+
		ansi.EraseEntireScreen+
		ansi.CursorHomePosition)
	if err != nil {
		return fmt.Errorf("console: enter alternate screen: %w", err)
	}
	r.last = nil
	return nil
}

// Close restores the host terminal.
func (r *Renderer) Close() error {
	_, err := io.WriteString(r.out, ansi.ResetStyle+
		ansi.SetMode(ansi.TextCursorEnableMode)+
		ansi.ResetMode(ansi.AltScreenSaveCursorMode))
	if err != nil {
		return fmt.Errorf("console: leave alternate screen: %w", err)
	}
	return nil
}

// Frame paints one snapshot of the surface cell memory, with the
// hardware cursor at the given position. Rows identical to the previous
// frame are skipped.
func (r *Renderer) Frame(snapshot []byte, cursorX, cursorY int) error {
	if len(snapshot) != vga.Size {
		return fmt.Errorf("console: snapshot is %d bytes, want %d", len(snapshot), vga.Size)
	}

	var sb strings.Builder
	for y := 0; y < vga.Rows; y++ {
		if r.last != nil && rowEqual(snapshot, r.last, y) {
			continue
		}
		sb.WriteString(ansi.CursorPosition(1, y+1))
		renderRow(&sb, snapshot, y)
	}

	// Park the host cursor where the hardware cursor latch points.
	sb.WriteString(ansi.ResetStyle)
	sb.WriteString(ansi.CursorPosition(cursorX+1, cursorY+1))

	if _, err := io.WriteString(r.out, sb.String()); err != nil {
		return fmt.Errorf("console: write frame: %w", err)
	}
	if r.last == nil {
		r.last = make([]byte, vga.Size)
	}
	copy(r.last, snapshot)
	return nil
}

func rowEqual(a, b []byte, y int) bool {
	off := y * vga.Cols * 2
	return string(a[off:off+vga.Cols*2]) == string(b[off:off+vga.Cols*2])
}

// renderRow emits one row, grouping runs of cells that share an
// attribute byte under a single SGR sequence.
func renderRow(sb *strings.Builder, snapshot []byte, y int) {
	attr := byte(0xff)
	for x := 0; x < vga.Cols; x++ {
		off := (y*vga.Cols + x) * 2
		ch, a := snapshot[off], snapshot[off+1]
		if a != attr {
			sb.WriteString(styleFor(a))
			attr = a
		}
		// Zero cells (fresh scroll rows) and control bytes render as
		// blanks, like the character generator drawing an empty glyph.
		if ch < 0x20 || ch >= 0x7f {
			ch = ' '
		}
		sb.WriteByte(ch)
	}
}

func styleFor(attr byte) string {
	var s ansi.Style
	s = s.ForegroundColor(vgaPalette[attr&0x0f])
	s = s.BackgroundColor(vgaPalette[(attr>>4)&0x07])
	if attr&0x80 != 0 {
		s = s.Blink(true)
	}
	return s.String()
}
