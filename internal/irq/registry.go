// Package irq connects the 16 legacy device interrupt lines to driver
// callbacks. Each line carries at most one handler; registering a line
// overwrites the slot and enables the physical line, unregistering
// disables the line and clears the slot. Shared or chained lines are
// deliberately unsupported.
package irq

import (
	"fmt"
	"log/slog"
	"sync"
)

// NumLines is the number of lines on the legacy interrupt controller
// pair.
const NumLines = 16

// Well-known line assignments used by the drivers in this repository.
const (
	LineTimer    = 0
	LineKeyboard = 1
	LineRTC      = 8
	LineMouse    = 12
)

// Controller is the physical interrupt controller the registry programs.
// Implemented by the machine's PIC model; tests substitute fakes.
type Controller interface {
	// EnableLine unmasks the given line.
	EnableLine(line int)
	// DisableLine masks the given line.
	DisableLine(line int)
	// EOI signals end-of-interrupt for the given line.
	EOI(line int)
}

// Registry maps interrupt lines to driver callbacks.
type Registry struct {
	mu       sync.Mutex
	ctrl     Controller
	handlers [NumLines]func()
}

func NewRegistry(ctrl Controller) *Registry {
	return &Registry{ctrl: ctrl}
}

// Register stores fn as the handler for line, overwriting any previous
// registration, and enables the physical line.
func (r *Registry) Register(line int, fn func()) error {
	if line < 0 || line >= NumLines {
		return fmt.Errorf("irq: register: line %d out of range", line)
	}
	if fn == nil {
		return fmt.Errorf("irq: register: nil handler for line %d", line)
	}
	r.mu.Lock()
	r.handlers[line] = fn
	r.mu.Unlock()
	r.ctrl.EnableLine(line)
	return nil
}

// Unregister disables the physical line and clears its handler slot.
// Safe to call on a line that has no handler; the disable is still
// issued.
func (r *Registry) Unregister(line int) error {
	if line < 0 || line >= NumLines {
		return fmt.Errorf("irq: unregister: line %d out of range", line)
	}
	r.ctrl.DisableLine(line)
	r.mu.Lock()
	r.handlers[line] = nil
	r.mu.Unlock()
	return nil
}

// Dispatch runs the handler registered for line, if any, then
// unconditionally sends end-of-interrupt. The EOI is sent even when no
// handler is registered so that a stray interrupt cannot leave the line
// masked forever, and always after the handler returns so a callback is
// never re-entered by its own line.
func (r *Registry) Dispatch(line int) {
	if line < 0 || line >= NumLines {
		slog.Debug("irq: dispatch for line out of range", "line", line)
		return
	}
	r.mu.Lock()
	fn := r.handlers[line]
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
	r.ctrl.EOI(line)
}
