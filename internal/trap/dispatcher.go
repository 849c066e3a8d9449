// Package trap owns the interrupt descriptor table and the central
// dispatcher that classifies every hardware trap and routes it to
// exception handling, device IRQ dispatch, or the syscall gate. It also
// arbitrates the privilege-dependent recovery policy: a kernel-mode
// exception halts the machine, a user-mode exception becomes a signal.
package trap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tinyrange/minikernel/internal/irq"
)

// PID identifies a process to the (external) process subsystem.
type PID int32

// Signal is the kind of asynchronous signal raised for a user-mode
// exception.
type Signal int

const (
	// SignalDivideByZero is raised for divide-error exceptions.
	SignalDivideByZero Signal = iota
	// SignalFault is raised for every other user-mode exception.
	SignalFault
)

func (s Signal) String() string {
	switch s {
	case SignalDivideByZero:
		return "divide-by-zero"
	case SignalFault:
		return "fault"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// ProcessHook is the boundary to the process/signal subsystem.
type ProcessHook interface {
	// ExecutingPID returns the id of the currently executing process.
	ExecutingPID() PID
	// Raise queues a signal against the given process.
	Raise(pid PID, sig Signal)
	// DeliverPending runs the handlers for every signal pending on the
	// executing process. Only called when the interrupted context was
	// user-privilege; the handler-return path assumes a user-mode
	// resumption target.
	DeliverPending(regs *Registers)
}

// SyscallHook is the boundary to the syscall table.
type SyscallHook interface {
	Dispatch(a0, a1, a2 uint32, num uint32, regs *Registers) int32
}

// Halter terminates the machine after a fatal kernel exception. Halt
// must not return.
type Halter interface {
	Halt()
}

// HaltForever is the production Halter: it parks the calling goroutine
// permanently, the closest host-side analogue of a cli;hlt loop.
type HaltForever struct{}

func (HaltForever) Halt() {
	select {}
}

// GateType distinguishes interrupt gates (further interrupts masked on
// entry) from trap gates.
type GateType uint8

const (
	GateInterrupt GateType = iota
	GateTrap
)

// Gate is one descriptor in the vector table: the handler it transfers
// to, the code segment it runs in, and the privilege level allowed to
// invoke it from software.
type Gate struct {
	Present  bool
	DPL      uint8
	Type     GateType
	Selector uint32
	Handler  func(*Registers)
}

// Hooks carries the out-of-scope collaborators the dispatcher calls
// into.
type Hooks struct {
	Process ProcessHook
	Syscall SyscallHook
	Halt    Halter

	// DumpTo receives the register dump on a fatal kernel exception.
	// Defaults to stderr.
	DumpTo io.Writer
}

// ErrInstalled is returned when Install is called on a dispatcher whose
// table is already active.
var ErrInstalled = errors.New("trap: vector table already installed")

// Dispatcher routes traps through the vector table.
type Dispatcher struct {
	table     [NumVectors]Gate
	installed bool

	registry *irq.Registry
	hooks    Hooks
}

func New(registry *irq.Registry, hooks Hooks) *Dispatcher {
	if hooks.Halt == nil {
		hooks.Halt = HaltForever{}
	}
	if hooks.DumpTo == nil {
		hooks.DumpTo = os.Stderr
	}
	return &Dispatcher{registry: registry, hooks: hooks}
}

// Install builds the full 256-entry vector table and activates it.
// Called once at boot; the table is immutable afterwards. Every gate
// targets the kernel code segment and forbids software invocation from
// user mode, with the single deliberate exception of the syscall gate,
// whose DPL of 3 is the only legal transfer from user code into the
// kernel.
func (d *Dispatcher) Install() error {
	if d.installed {
		return ErrInstalled
	}

	for v := 0; v < NumVectors; v++ {
		g := Gate{
			Present:  true,
			DPL:      0,
			Type:     GateInterrupt,
			Selector: KernelCS,
		}
		switch {
		case v < NumExceptions:
			g.Handler = d.handleException
		case v >= IRQBase && v < IRQBase+NumIRQ:
			g.Handler = d.handleIRQ
		case v == VecSyscall:
			g.DPL = 3
			g.Handler = d.handleSyscall
		default:
			g.Handler = d.handleUnknown
		}
		d.table[v] = g
	}

	d.installed = true
	return nil
}

// UserInvocable reports whether user code may reach the given vector
// with a software interrupt instruction. This is the descriptor-table
// privilege contract: true only for the syscall gate.
func (d *Dispatcher) UserInvocable(vector uint32) bool {
	if vector >= NumVectors {
		return false
	}
	g := d.table[vector]
	return g.Present && g.DPL == 3
}

// Dispatch routes one trap. It is invoked with interrupts disabled and
// never returns a value; the snapshot is mutated only on the syscall
// path. After the trap-specific path completes, pending signals are
// drained iff the interrupted context was user-privilege.
func (d *Dispatcher) Dispatch(regs *Registers) {
	if !d.installed {
		slog.Error("trap: dispatch before install", "vector", regs.Vector)
		return
	}
	if regs.Vector >= NumVectors {
		slog.Debug("trap: vector out of range", "vector", regs.Vector)
		return
	}

	d.table[regs.Vector].Handler(regs)

	// Signal delivery only ever happens on return to user mode. The
	// sigreturn path cannot safely resume a kernel-mode context.
	if regs.FromUser() && d.hooks.Process != nil {
		d.hooks.Process.DeliverPending(regs)
	}
}

// handleException resolves a CPU exception: recoverable (signal) when it
// came from user code, fatal (dump and halt) when it came from the
// kernel itself. A kernel exception is always a programming error, never
// a condition worth retrying.
func (d *Dispatcher) handleException(regs *Registers) {
	if regs.FromUser() {
		slog.Debug("trap: userspace exception", "name", ExceptionName(regs.Vector), "vector", regs.Vector)
		if d.hooks.Process == nil {
			return
		}
		pid := d.hooks.Process.ExecutingPID()
		if regs.Vector == ExcDivideError {
			d.hooks.Process.Raise(pid, SignalDivideByZero)
		} else {
			d.hooks.Process.Raise(pid, SignalFault)
		}
		return
	}

	w := d.hooks.DumpTo
	fmt.Fprintln(w, "****************************************")
	fmt.Fprintf(w, "Exception: %s\n", ExceptionName(regs.Vector))
	fmt.Fprintln(w, "****************************************")
	regs.DumpTo(w)
	d.hooks.Halt.Halt()
}

func (d *Dispatcher) handleIRQ(regs *Registers) {
	d.registry.Dispatch(int(regs.Vector - IRQBase))
}

// handleSyscall reads the syscall number and arguments out of the
// snapshot, invokes the syscall table, and writes the result back into
// the return-value register.
func (d *Dispatcher) handleSyscall(regs *Registers) {
	if d.hooks.Syscall == nil {
		slog.Debug("trap: syscall with no handler installed", "num", regs.EAX)
		return
	}
	slog.Debug("trap: syscall", "num", regs.EAX)
	regs.EAX = uint32(d.hooks.Syscall.Dispatch(regs.EBX, regs.ECX, regs.EDX, regs.EAX, regs))
}

// handleUnknown is the defensive default for vectors the table routes
// nowhere; unreachable given how Install populates the table, but a
// stray vector must never be fatal.
func (d *Dispatcher) handleUnknown(regs *Registers) {
	slog.Debug("trap: unknown interrupt", "vector", regs.Vector)
}
