// Package machine wires the simulated hardware together: the CPU
// interrupt gate, the interrupt controller, the keyboard port, the
// video surface, and on top of them the trap dispatcher, IRQ registry,
// keyboard driver, and terminal multiplexer. Hardware stimuli are
// injected through it, which is what makes the whole core testable
// without real hardware.
package machine

import (
	"fmt"

	"github.com/tinyrange/minikernel/internal/cpu"
	"github.com/tinyrange/minikernel/internal/irq"
	"github.com/tinyrange/minikernel/internal/keyboard"
	"github.com/tinyrange/minikernel/internal/terminal"
	"github.com/tinyrange/minikernel/internal/trap"
	"github.com/tinyrange/minikernel/internal/vga"
)

// Config carries the out-of-scope collaborators the kernel core calls
// into. Zero values give a machine with no process/syscall subsystem
// attached and a halter that parks forever.
type Config struct {
	Hooks trap.Hooks
}

// Machine is one booted instance of the kernel core.
type Machine struct {
	Gate      *cpu.Gate
	PIC       *PIC
	Keyboard  *KeyboardPort
	Surface   *vga.Surface
	Registry  *irq.Registry
	Terminals *terminal.Mux

	dispatcher *trap.Dispatcher
	kbd        *keyboard.Driver
}

// New boots a machine: builds the vector table, programs the interrupt
// controller, and attaches the keyboard driver.
func New(cfg Config) (*Machine, error) {
	m := &Machine{
		Gate:     cpu.NewGate(),
		PIC:      NewPIC(),
		Keyboard: NewKeyboardPort(),
		Surface:  vga.NewSurface(),
	}
	m.Registry = irq.NewRegistry(m.PIC)
	m.Terminals = terminal.NewMux(m.Gate, m.Surface)

	m.dispatcher = trap.New(m.Registry, cfg.Hooks)
	if err := m.dispatcher.Install(); err != nil {
		return nil, fmt.Errorf("machine: install vector table: %w", err)
	}

	m.Keyboard.raise = func() { m.RaiseIRQ(irq.LineKeyboard) }
	m.kbd = keyboard.NewDriver(m.Keyboard, m.Terminals)
	if err := m.kbd.Attach(m.Registry); err != nil {
		return nil, fmt.Errorf("machine: attach keyboard: %w", err)
	}

	return m, nil
}

// RaiseIRQ asserts a device line and services every interrupt the
// controller is willing to deliver. Each delivered interrupt runs as a
// trap on the simulated CPU with a fabricated kernel-context snapshot,
// exactly as the hardware entry sequence would produce.
func (m *Machine) RaiseIRQ(line int) {
	m.PIC.Raise(line)
	m.service()
}

// service drains the controller. The loop keeps going after each trap
// because the EOI sent during dispatch may have made another line
// deliverable.
func (m *Machine) service() {
	for {
		line, ok := m.PIC.Acknowledge()
		if !ok {
			return
		}
		regs := &trap.Registers{
			Vector: uint32(trap.IRQBase + line),
			CS:     trap.KernelCS,
		}
		m.Gate.Interrupt(func() { m.dispatcher.Dispatch(regs) })
	}
}

// InjectKeys types raw scancode bytes on the simulated keyboard.
func (m *Machine) InjectKeys(scancodes ...byte) {
	m.Keyboard.Inject(scancodes...)
}

// Trap delivers an arbitrary trap with the given snapshot, as the
// hardware would after an exception or software interrupt. Used by
// tests and by the front end to model user-mode faults.
func (m *Machine) Trap(regs *trap.Registers) {
	m.Gate.Interrupt(func() { m.dispatcher.Dispatch(regs) })
	m.service()
}

// SoftwareInterrupt models an `int vector` instruction executed in the
// context described by regs. A user-mode attempt to reach any gate
// other than the syscall gate does not transfer control there: the CPU
// raises a general protection fault with the offending vector encoded
// in the error code, which the dispatcher then converts to a signal.
func (m *Machine) SoftwareInterrupt(vector uint32, regs *trap.Registers) {
	if regs.FromUser() && !m.dispatcher.UserInvocable(vector) {
		regs.Vector = trap.ExcProtection
		regs.ErrorCode = vector<<3 | 0x2
	} else {
		regs.Vector = vector
	}
	m.Trap(regs)
}
