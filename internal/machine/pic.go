package machine

import (
	"math/bits"
	"sync"
)

// PIC models the cascaded 8259A pair as a flat 16-line controller:
// request, mask, and in-service state per line, with fixed priority
// (line 0 highest). The cascade between the two physical chips is not
// observable at this layer, so it is not modeled.
type PIC struct {
	mu  sync.Mutex
	imr uint16 // masked lines; all lines start masked
	irr uint16 // requested lines awaiting acknowledge
	isr uint16 // lines currently being serviced
}

func NewPIC() *PIC {
	return &PIC{imr: 0xffff}
}

// EnableLine unmasks a line. Implements irq.Controller.
func (p *PIC) EnableLine(line int) {
	if line < 0 || line > 15 {
		return
	}
	p.mu.Lock()
	p.imr &^= 1 << line
	p.mu.Unlock()
}

// DisableLine masks a line. Implements irq.Controller.
func (p *PIC) DisableLine(line int) {
	if line < 0 || line > 15 {
		return
	}
	p.mu.Lock()
	p.imr |= 1 << line
	p.mu.Unlock()
}

// EOI retires the in-service bit for a line, allowing it to be
// acknowledged again. Implements irq.Controller.
func (p *PIC) EOI(line int) {
	if line < 0 || line > 15 {
		return
	}
	p.mu.Lock()
	p.isr &^= 1 << line
	p.mu.Unlock()
}

// Raise asserts a line. The request latches until acknowledged.
func (p *PIC) Raise(line int) {
	if line < 0 || line > 15 {
		return
	}
	p.mu.Lock()
	p.irr |= 1 << line
	p.mu.Unlock()
}

// Acknowledge returns the highest-priority pending line and marks it in
// service, or false when nothing is deliverable. A line is deliverable
// when it is requested, unmasked, and of strictly higher priority than
// every line currently in service; the in-service bit is what keeps a
// handler from being re-entered by its own line before it EOIs.
func (p *PIC) Acknowledge() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	higherThanISR := lowestSetBit16(p.isr) - 1 // all ones when ISR empty
	ready := p.irr &^ p.imr & higherThanISR
	if ready == 0 {
		return 0, false
	}
	line := bits.TrailingZeros16(ready)
	bit := uint16(1) << line
	p.irr &^= bit
	p.isr |= bit
	return line, true
}

func lowestSetBit16(v uint16) uint16 {
	return v & -v
}
