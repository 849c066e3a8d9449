package console

import (
	"github.com/tinyrange/minikernel/internal/keyboard"
)

// translator converts host terminal bytes into the scancode packets a
// keyboard would have produced for them. Function keys arrive from the
// host as SS3 escape sequences, so a little buffering is needed.
type translator struct {
	esc []byte
}

// fnSwitchKeys maps the final byte of an SS3 function-key sequence
// (ESC O P..R is F1..F3) to the keycode for the display-switch chord.
var fnSwitchKeys = map[byte]byte{
	'P': keyboard.KeyF1,
	'Q': keyboard.KeyF2,
	'R': keyboard.KeyF3,
}

// translate consumes one host byte and returns the scancode packets it
// stands for, which may be empty while an escape sequence is pending or
// when the byte has no key behind it.
func (t *translator) translate(b byte) []byte {
	if t.esc != nil {
		return t.continueEscape(b)
	}

	switch b {
	case 0x1b:
		t.esc = []byte{}
		return nil
	case '\r':
		b = '\n'
	case 0x7f:
		b = '\b'
	case 0x0c: // Ctrl-L
		return keyboard.ControlScancodes(keyboard.KeyL)
	}

	if packets, ok := keyboard.Scancodes(b); ok {
		return packets
	}
	return nil
}

func (t *translator) continueEscape(b byte) []byte {
	t.esc = append(t.esc, b)
	switch t.esc[0] {
	case 'O':
		if len(t.esc) < 2 {
			return nil
		}
		final := t.esc[1]
		t.esc = nil
		if keycode, ok := fnSwitchKeys[final]; ok {
			return keyboard.SwitchScancodes(keycode)
		}
		return nil
	case '[':
		// CSI sequences (arrow keys and the like) are consumed through
		// their final byte and dropped; no key maps to them.
		if len(t.esc) > 1 && b >= 0x40 && b <= 0x7e {
			t.esc = nil
		}
		return nil
	default:
		t.esc = nil
		return nil
	}
}
