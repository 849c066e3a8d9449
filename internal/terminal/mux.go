package terminal

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/minikernel/internal/cpu"
	"github.com/tinyrange/minikernel/internal/keyboard"
	"github.com/tinyrange/minikernel/internal/vga"
)

// NumTerminals is the fixed number of terminal slots.
const NumTerminals = 3

// Mux owns the terminal slots, routes decoded keyboard input to the
// executing terminal, and decides which terminal's surface occupies the
// live video surface.
type Mux struct {
	gate *cpu.Gate
	live *vga.Surface

	terms   [NumTerminals]*Terminal
	display int
}

// NewMux builds the terminal slots. Terminal 0 starts on the live
// surface; the others render to their backing surfaces until displayed.
func NewMux(gate *cpu.Gate, live *vga.Surface) *Mux {
	m := &Mux{gate: gate, live: live}
	for i := range m.terms {
		t := &Terminal{
			gate:    gate,
			backing: vga.NewSurface(),
		}
		t.surface = t.backing
		m.terms[i] = t
	}
	m.terms[0].surface = live
	return m
}

// Terminal returns the terminal in the given slot.
func (m *Mux) Terminal(index int) (*Terminal, error) {
	if index < 0 || index >= NumTerminals {
		return nil, fmt.Errorf("terminal: index %d out of range", index)
	}
	return m.terms[index], nil
}

// Executing returns the terminal owning the currently executing
// process. This is always terminal 0 until a scheduler exists to say
// otherwise; it is not necessarily the displayed terminal.
func (m *Mux) Executing() *Terminal {
	return m.terms[0]
}

// Display returns the index of the currently displayed terminal.
func (m *Mux) Display() int {
	m.gate.Disable()
	defer m.gate.Enable()
	return m.display
}

// HandleInput consumes one decoded keyboard event. It runs in interrupt
// context, with the gate already held by the interrupt delivery.
func (m *Mux) HandleInput(in keyboard.Input) {
	switch in.Type {
	case keyboard.InputChar:
		m.Executing().handleChar(in.Char)
	case keyboard.InputControl:
		m.handleControl(in.Control)
	case keyboard.InputNone:
	default:
		slog.Debug("terminal: invalid input type", "type", int(in.Type))
	}
}

// handleControl dispatches a keyboard control sequence. Only the first
// terminal-switch sequence is wired to an effect; the other two slots
// are reserved and deliberately left unswitched.
func (m *Mux) handleControl(ctrl keyboard.Control) {
	switch ctrl {
	case keyboard.ControlClear:
		m.Executing().clear()
	case keyboard.ControlTerm1:
		m.setDisplay(0)
	case keyboard.ControlTerm2:
		// Reserved: terminal 2 is not displayable yet.
	case keyboard.ControlTerm3:
		// Reserved: terminal 3 is not displayable yet.
	default:
		slog.Debug("terminal: invalid control sequence", "control", int(ctrl))
	}
}

// setDisplay switches which terminal's surface occupies the live video
// surface. The outgoing terminal's screen contents are parked in its
// backing surface; the incoming terminal's backing contents are blitted
// onto the live surface. Called with the gate held.
func (m *Mux) setDisplay(index int) {
	if index < 0 || index >= NumTerminals {
		slog.Debug("terminal: display index out of range", "index", index)
		return
	}
	if index == m.display {
		return
	}

	old := m.terms[m.display]
	old.backing.CopyFrom(m.live)
	old.surface = old.backing

	next := m.terms[index]
	m.live.CopyFrom(next.backing)
	next.surface = m.live

	m.display = index
}

// SetDisplay is the non-interrupt entry point for switching the
// displayed terminal.
func (m *Mux) SetDisplay(index int) error {
	if index < 0 || index >= NumTerminals {
		return fmt.Errorf("terminal: display index %d out of range", index)
	}
	m.gate.Disable()
	m.setDisplay(index)
	m.gate.Enable()
	return nil
}

// ClearInput discards the buffered input of one terminal.
func (m *Mux) ClearInput(index int) error {
	if index < 0 || index >= NumTerminals {
		return fmt.Errorf("terminal: index %d out of range", index)
	}
	m.gate.Disable()
	m.terms[index].clearInput()
	m.gate.Enable()
	return nil
}
