package keyboard

// Keycodes for the keys the translation tables care about. A packet's
// low 7 bits are the keycode; codes at or beyond NumKeys have no
// printable translation.
const (
	KeyEscape     = 0x01
	KeyBackspace  = 0x0e
	KeyTab        = 0x0f
	KeyEnter      = 0x1c
	KeyLeftCtrl   = 0x1d
	KeyL          = 0x26
	KeyLeftShift  = 0x2a
	KeyRightShift = 0x36
	KeyLeftAlt    = 0x38
	KeySpace      = 0x39
	KeyCapsLock   = 0x3a
	KeyF1         = 0x3b
	KeyF2         = 0x3c
	KeyF3         = 0x3d

	// The right-hand Ctrl/Alt variants arrive with an extended prefix on
	// real hardware; the port model flattens them to these codes.
	KeyRightCtrl = 0x54
	KeyRightAlt  = 0x55
)

// NumKeys is the extent of the printable translation tables.
const NumKeys = 58

// keycodeToModifier maps a keycode to the modifier it represents, or
// ModNone for non-modifier keys.
func keycodeToModifier(keycode byte) Modifiers {
	switch keycode {
	case KeyLeftCtrl:
		return ModLeftCtrl
	case KeyRightCtrl:
		return ModRightCtrl
	case KeyLeftShift:
		return ModLeftShift
	case KeyRightShift:
		return ModRightShift
	case KeyLeftAlt:
		return ModLeftAlt
	case KeyRightAlt:
		return ModRightAlt
	case KeyCapsLock:
		return ModCaps
	default:
		return ModNone
	}
}

// Translation table indices by consolidated modifier combination.
const (
	mapPlain = iota
	mapShift
	mapCaps
	mapShiftCaps
)

// keycodeMap translates keycodes to printable characters for each of
// the four modifier combinations. A zero entry means the keycode has no
// printable translation under that combination.
var keycodeMap = [4][NumKeys]byte{
	mapPlain: {
		0, 0, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=',
		'\b', '\t', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '[', ']',
		'\n', 0, 'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', '\'', '`',
		0, '\\', 'z', 'x', 'c', 'v', 'b', 'n', 'm', ',', '.', '/', 0, '*',
		0, ' ',
	},
	mapShift: {
		0, 0, '!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '_', '+',
		'\b', '\t', 'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P', '{', '}',
		'\n', 0, 'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ':', '"', '~',
		0, '|', 'Z', 'X', 'C', 'V', 'B', 'N', 'M', '<', '>', '?', 0, '*',
		0, ' ',
	},
	mapCaps: {
		0, 0, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '=',
		'\b', '\t', 'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I', 'O', 'P', '[', ']',
		'\n', 0, 'A', 'S', 'D', 'F', 'G', 'H', 'J', 'K', 'L', ';', '\'', '`',
		0, '\\', 'Z', 'X', 'C', 'V', 'B', 'N', 'M', ',', '.', '/', 0, '*',
		0, ' ',
	},
	mapShiftCaps: {
		0, 0, '!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '_', '+',
		'\b', '\t', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', 'o', 'p', '{', '}',
		'\n', 0, 'a', 's', 'd', 'f', 'g', 'h', 'j', 'k', 'l', ':', '"', '~',
		0, '|', 'z', 'x', 'c', 'v', 'b', 'n', 'm', '<', '>', '?', 0, '*',
		0, ' ',
	},
}

// keycodeToControl maps a keycode pressed under a Ctrl combination to a
// control sequence. Only Ctrl-L is defined.
func keycodeToControl(keycode byte) Control {
	switch keycode {
	case KeyL:
		return ControlClear
	default:
		return ControlNone
	}
}

// keycodeToSwitch maps a keycode pressed under an Alt combination to a
// display-terminal switch sequence.
func keycodeToSwitch(keycode byte) Control {
	switch keycode {
	case KeyF1:
		return ControlTerm1
	case KeyF2:
		return ControlTerm2
	case KeyF3:
		return ControlTerm3
	default:
		return ControlNone
	}
}
