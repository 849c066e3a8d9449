// Package cpu models the execution environment of the single logical
// processor the kernel core runs on: the interrupt-enable flag and the
// halt instruction. There is no scheduler underneath this layer, so the
// gate is the only mutual-exclusion primitive the rest of the core has.
package cpu

import "sync"

// Gate models the CPU interrupt-enable flag. Holding the gate corresponds
// to running with interrupts disabled (cli); releasing it corresponds to
// sti. Interrupt delivery acquires the gate, so a section that holds it
// cannot be interleaved with a handler.
//
// EnableAndHalt provides the sti;hlt;cli sequence as a single atomic
// suspend: on hardware, sti only takes effect after the following
// instruction, so an interrupt can never slip between the enable and the
// halt. sync.Cond.Wait gives the same guarantee (atomic unlock-and-sleep),
// which is why the gate is built on it rather than on a busy loop.
type Gate struct {
	mu   sync.Mutex
	wake sync.Cond
}

func NewGate() *Gate {
	g := &Gate{}
	g.wake.L = &g.mu
	return g
}

// Disable turns interrupts off (cli). Blocks until any in-flight
// interrupt handler finishes.
func (g *Gate) Disable() {
	g.mu.Lock()
}

// Enable turns interrupts back on (sti).
func (g *Gate) Enable() {
	g.mu.Unlock()
}

// EnableAndHalt atomically re-enables interrupts and halts until the next
// interrupt completes, then returns with interrupts disabled again
// (sti; hlt; cli). Must be called with the gate held.
func (g *Gate) EnableAndHalt() {
	g.wake.Wait()
}

// Interrupt runs fn as an interrupt handler: with the gate held, then
// wakes every execution stream halted in EnableAndHalt. Handlers
// delivered through the same gate are serialized, which is the
// single-CPU property the rest of the core depends on.
func (g *Gate) Interrupt(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
	g.wake.Broadcast()
}
