package keyboard

import (
	"fmt"

	"github.com/tinyrange/minikernel/internal/irq"
)

// PortReader reads single scancode bytes from the keyboard data port.
// Implemented by the machine's keyboard port model.
type PortReader interface {
	ReadScancode() (byte, bool)
}

// Sink consumes decoded input events. Implemented by the terminal
// layer.
type Sink interface {
	HandleInput(in Input)
}

// Driver is the keyboard interrupt handler: one scancode is read and
// decoded per interrupt, and the resulting event is forwarded to the
// sink. It runs in interrupt context and must never block.
type Driver struct {
	dec  *Decoder
	port PortReader
	sink Sink
}

func NewDriver(port PortReader, sink Sink) *Driver {
	return &Driver{dec: NewDecoder(), port: port, sink: sink}
}

// Attach registers the driver on the keyboard IRQ line and enables it.
func (d *Driver) Attach(reg *irq.Registry) error {
	if err := reg.Register(irq.LineKeyboard, d.HandleIRQ); err != nil {
		return fmt.Errorf("keyboard: attach: %w", err)
	}
	return nil
}

// Detach unregisters the driver and masks the keyboard line.
func (d *Driver) Detach(reg *irq.Registry) error {
	if err := reg.Unregister(irq.LineKeyboard); err != nil {
		return fmt.Errorf("keyboard: detach: %w", err)
	}
	return nil
}

// HandleIRQ services one keyboard interrupt.
func (d *Driver) HandleIRQ() {
	packet, ok := d.port.ReadScancode()
	if !ok {
		// Spurious interrupt with an empty output buffer.
		return
	}
	in := d.dec.Decode(packet)
	if in.Type == InputNone {
		return
	}
	d.sink.HandleInput(in)
}
