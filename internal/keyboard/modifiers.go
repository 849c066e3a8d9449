package keyboard

// Modifiers is the bitset of currently held or toggled modifier keys.
type Modifiers uint8

const (
	ModLeftCtrl Modifiers = 1 << iota
	ModRightCtrl
	ModLeftShift
	ModRightShift
	ModLeftAlt
	ModRightAlt
	ModCaps

	ModNone Modifiers = 0
)

// Combined left/right masks. Either side of a hold-type modifier is
// equivalent for input translation.
const (
	ModCtrl  = ModLeftCtrl | ModRightCtrl
	ModShift = ModLeftShift | ModRightShift
	ModAlt   = ModLeftAlt | ModRightAlt
)

// consolidated returns the modifier state with the left/right variants
// of each hold-type modifier OR'ed together, so a combination can be
// matched against the combined masks regardless of which side is held.
func (m Modifiers) consolidated() Modifiers {
	out := m
	if m&ModCtrl != 0 {
		out |= ModCtrl
	}
	if m&ModShift != 0 {
		out |= ModShift
	}
	if m&ModAlt != 0 {
		out |= ModAlt
	}
	return out
}
