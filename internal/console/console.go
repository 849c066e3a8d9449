package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tinyrange/minikernel/internal/machine"
)

// DefaultRefresh is how often the display is repainted when the config
// does not say otherwise. Text mode does not need more.
const DefaultRefresh = 33 * time.Millisecond

// errQuit reports that the user pressed the detach key.
var errQuit = errors.New("console: detached")

// Console attaches a host terminal to a machine: bytes read from in
// become keyboard scancodes, and the machine's live video surface is
// repainted to out on a fixed cadence.
type Console struct {
	machine  *machine.Machine
	in       io.Reader
	renderer *Renderer
	refresh  time.Duration
}

// New returns a console for the given machine. The caller is expected
// to have put in into raw mode; the console never sees line-buffered
// input.
func New(m *machine.Machine, in io.Reader, out io.Writer, refresh time.Duration) *Console {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &Console{
		machine:  m,
		in:       in,
		renderer: NewRenderer(out),
		refresh:  refresh,
	}
}

// Run paints frames and pumps input until the context is cancelled or
// the user detaches with Ctrl-Q. The input pump runs on its own
// goroutine because reads from a raw terminal block.
func (c *Console) Run(ctx context.Context) error {
	if err := c.renderer.Open(); err != nil {
		return err
	}
	defer func() {
		if err := c.renderer.Close(); err != nil {
			slog.Warn("console: restoring host terminal", "error", err)
		}
	}()

	inputErr := make(chan error, 1)
	go c.pumpInput(inputErr)

	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-inputErr:
			if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case <-ticker.C:
			if err := c.frame(); err != nil {
				return err
			}
		}
	}
}

// frame snapshots the live surface with interrupts gated off and hands
// it to the renderer. The gate is held only for the copy, never for the
// write to the host terminal.
func (c *Console) frame() error {
	c.machine.Gate.Disable()
	snapshot := c.machine.Surface.Snapshot()
	x, y := c.machine.Surface.Cursor()
	c.machine.Gate.Enable()

	return c.renderer.Frame(snapshot, x, y)
}

func (c *Console) pumpInput(done chan<- error) {
	var tr translator
	buf := make([]byte, 64)
	for {
		n, err := c.in.Read(buf)
		for _, b := range buf[:n] {
			if b == 0x11 { // Ctrl-Q detaches
				done <- errQuit
				return
			}
			if packets := tr.translate(b); len(packets) > 0 {
				c.machine.InjectKeys(packets...)
			}
		}
		if err != nil {
			done <- fmt.Errorf("console: read input: %w", err)
			return
		}
	}
}
