package machine

import (
	"log/slog"
	"sync"
)

// keyboardFIFOSize matches the scancode buffer of the keyboard
// controller. Scancodes injected while the buffer is full are dropped;
// the interrupt path never blocks on input.
const keyboardFIFOSize = 16

// KeyboardPort models the keyboard data port: a small scancode FIFO
// filled by the (simulated) hardware and drained one byte per
// interrupt by the keyboard driver.
type KeyboardPort struct {
	mu      sync.Mutex
	fifo    []byte
	dropped uint64

	// raise asserts the keyboard IRQ line. Set by the machine during
	// wiring.
	raise func()
}

func NewKeyboardPort() *KeyboardPort {
	return &KeyboardPort{}
}

// ReadScancode pops one byte from the FIFO. Implements
// keyboard.PortReader; returns false on an empty buffer (spurious
// interrupt).
func (p *KeyboardPort) ReadScancode() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.fifo) == 0 {
		return 0, false
	}
	b := p.fifo[0]
	p.fifo = p.fifo[1:]
	return b, true
}

// Inject queues scancode bytes as if typed on the hardware, raising one
// keyboard interrupt per byte accepted.
func (p *KeyboardPort) Inject(scancodes ...byte) {
	for _, b := range scancodes {
		p.mu.Lock()
		if len(p.fifo) >= keyboardFIFOSize {
			p.dropped++
			p.mu.Unlock()
			slog.Debug("machine: keyboard FIFO full, scancode dropped", "scancode", b)
			continue
		}
		p.fifo = append(p.fifo, b)
		raise := p.raise
		p.mu.Unlock()
		if raise != nil {
			raise()
		}
	}
}

// Dropped returns the number of scancodes discarded on FIFO overflow.
func (p *KeyboardPort) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
