// Package keyboard decodes raw scancode packets from the keyboard data
// port into logical input events, tracking modifier key state across
// packets. The decoder is the only consumer of keyboard hardware bytes;
// its output feeds the terminal line discipline.
package keyboard

import "log/slog"

// InputType classifies a decoded input event.
type InputType int

const (
	// InputNone is an event that should be ignored.
	InputNone InputType = iota
	// InputChar carries a single printable (or editing) character.
	InputChar
	// InputControl carries a control sequence.
	InputControl
)

// Control identifies a keyboard control sequence.
type Control int

const (
	ControlNone Control = iota
	// ControlClear clears the terminal screen (Ctrl-L).
	ControlClear
	// ControlTerm1..3 switch the displayed terminal (Alt-F1..F3).
	ControlTerm1
	ControlTerm2
	ControlTerm3
)

// Input is one decoded keyboard event.
type Input struct {
	Type    InputType
	Char    byte
	Control Control
}

// Decoder turns scancode packets into Input events. Its only state is
// the modifier bitset.
type Decoder struct {
	mods Modifiers
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Modifiers returns the current raw modifier state.
func (d *Decoder) Modifiers() Modifiers {
	return d.mods
}

// Decode processes one scancode packet. The high bit of the packet is
// set on release; the low 7 bits are the keycode. Modifier keys update
// decoder state and produce no event. For all other keys only the press
// edge produces an event; releases are discarded.
func (d *Decoder) Decode(packet byte) Input {
	pressed := packet&ReleaseBit == 0
	keycode := packet &^ ReleaseBit

	if mod := keycodeToModifier(keycode); mod != ModNone {
		if mod == ModCaps {
			// Toggle-type modifiers flip on the press edge only.
			if pressed {
				d.mods ^= mod
			}
		} else if pressed {
			d.mods |= mod
		} else {
			d.mods &^= mod
		}
		return Input{}
	}

	if !pressed {
		return Input{}
	}
	return d.translate(keycode)
}

// translate maps a pressed non-modifier keycode to an input event using
// the consolidated modifier combination. Character combinations look up
// the printable tables; Ctrl and Alt combinations consult their own
// small fixed tables.
func (d *Decoder) translate(keycode byte) Input {
	mods := d.mods.consolidated()

	var table int
	switch mods {
	case ModNone:
		table = mapPlain
	case ModShift:
		table = mapShift
	case ModCaps:
		table = mapCaps
	case ModCaps | ModShift:
		table = mapShiftCaps
	default:
		return d.translateControl(keycode, mods)
	}

	if keycode >= NumKeys {
		slog.Debug("keyboard: unknown keycode", "keycode", keycode)
		return Input{}
	}
	ch := keycodeMap[table][keycode]
	if ch == 0 {
		// Keys with no printable translation (Escape, F-keys, keypad).
		return Input{}
	}
	return Input{Type: InputChar, Char: ch}
}

func (d *Decoder) translateControl(keycode byte, mods Modifiers) Input {
	switch mods {
	case ModCtrl, ModCaps | ModCtrl:
		if ctrl := keycodeToControl(keycode); ctrl != ControlNone {
			return Input{Type: InputControl, Control: ctrl}
		}
		slog.Debug("keyboard: unhandled ctrl combination", "keycode", keycode)
		return Input{}
	case ModAlt, ModCaps | ModAlt:
		if ctrl := keycodeToSwitch(keycode); ctrl != ControlNone {
			return Input{Type: InputControl, Control: ctrl}
		}
		slog.Debug("keyboard: unhandled alt combination", "keycode", keycode)
		return Input{}
	default:
		slog.Debug("keyboard: unhandled modifier combination", "modifiers", uint8(d.mods))
		return Input{}
	}
}
