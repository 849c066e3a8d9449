package keyboard

import "sync"

// ReleaseBit is set in a scancode packet when the key is released.
const ReleaseBit = 0x80

var (
	encodeOnce  sync.Once
	encodePlain [256]byte
	encodeShift [256]byte
)

func buildEncodeTables() {
	for code := byte(0); code < NumKeys; code++ {
		if ch := keycodeMap[mapPlain][code]; ch != 0 && encodePlain[ch] == 0 {
			encodePlain[ch] = code
		}
		if ch := keycodeMap[mapShift][code]; ch != 0 && encodeShift[ch] == 0 {
			encodeShift[ch] = code
		}
	}
}

// Scancodes returns the packet sequence a keyboard would emit to type
// the given character: a press/release pair, wrapped in a shift
// press/release when the character only exists on the shifted layer.
// ok is false for characters with no key behind them.
func Scancodes(ch byte) (packets []byte, ok bool) {
	encodeOnce.Do(buildEncodeTables)

	if code := encodePlain[ch]; code != 0 {
		return []byte{code, code | ReleaseBit}, true
	}
	if code := encodeShift[ch]; code != 0 {
		return []byte{
			KeyLeftShift,
			code, code | ReleaseBit,
			KeyLeftShift | ReleaseBit,
		}, true
	}
	return nil, false
}

// ControlScancodes returns the packet sequence for a control chord: the
// keycode pressed and released while LeftCtrl is held.
func ControlScancodes(keycode byte) []byte {
	return []byte{
		KeyLeftCtrl,
		keycode, keycode | ReleaseBit,
		KeyLeftCtrl | ReleaseBit,
	}
}

// SwitchScancodes returns the packet sequence for an Alt+function-key
// display switch chord.
func SwitchScancodes(keycode byte) []byte {
	return []byte{
		KeyLeftAlt,
		keycode, keycode | ReleaseBit,
		KeyLeftAlt | ReleaseBit,
	}
}
