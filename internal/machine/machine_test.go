package machine

import (
	"bytes"
	"testing"
	"time"

	"github.com/tinyrange/minikernel/internal/trap"
)

type recordedSignal struct {
	pid trap.PID
	sig trap.Signal
}

type stubProcess struct {
	raised    []recordedSignal
	delivered int
}

func (p *stubProcess) ExecutingPID() trap.PID { return 1 }
func (p *stubProcess) Raise(pid trap.PID, s trap.Signal) {
	p.raised = append(p.raised, recordedSignal{pid, s})
}
func (p *stubProcess) DeliverPending(*trap.Registers) { p.delivered++ }

type haltSentinel struct{}

type stubHalter struct{}

func (stubHalter) Halt() { panic(haltSentinel{}) }

// pressRelease builds the press+release scancode pair for a keycode.
func pressRelease(keycode byte) []byte {
	return []byte{keycode, keycode | 0x80}
}

// typeString injects scancodes for a string of lowercase letters,
// digits and newline using the plain keymap.
func typeString(m *Machine, s string) {
	for i := 0; i < len(s); i++ {
		m.InjectKeys(pressRelease(scancodeFor(s[i]))...)
	}
}

func scancodeFor(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		row := map[byte]byte{
			'q': 0x10, 'w': 0x11, 'e': 0x12, 'r': 0x13, 't': 0x14, 'y': 0x15,
			'u': 0x16, 'i': 0x17, 'o': 0x18, 'p': 0x19,
			'a': 0x1e, 's': 0x1f, 'd': 0x20, 'f': 0x21, 'g': 0x22, 'h': 0x23,
			'j': 0x24, 'k': 0x25, 'l': 0x26,
			'z': 0x2c, 'x': 0x2d, 'c': 0x2e, 'v': 0x2f, 'b': 0x30, 'n': 0x31,
			'm': 0x32,
		}
		return row[c]
	case c == '\n':
		return 0x1c
	case c == ' ':
		return 0x39
	default:
		return 0
	}
}

func TestTypedLineReachesBlockingRead(t *testing.T) {
	m, err := New(Config{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n := m.Terminals.Executing().Read(buf)
		got <- string(buf[:n])
	}()

	typeString(m, "hello\n")

	select {
	case line := <-got:
		if line != "hello\n" {
			t.Fatalf("read %q, want %q", line, "hello\n")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("read never returned")
	}

	// The echo landed on the live surface.
	for i, want := range []byte("hello") {
		if ch := m.Surface.CharAt(i, 0); ch != want {
			t.Errorf("surface cell %d = %q, want %q", i, ch, want)
		}
	}
}

func TestKeyboardFIFOOverflowDropsScancodes(t *testing.T) {
	m, err := New(Config{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	// Mask the keyboard line so nothing drains the FIFO while we flood it.
	m.PIC.DisableLine(1)
	for i := 0; i < keyboardFIFOSize+5; i++ {
		m.InjectKeys(0x1e)
	}
	if d := m.Keyboard.Dropped(); d != 5 {
		t.Fatalf("dropped = %d, want 5", d)
	}
}

func TestUserFaultBecomesSignal(t *testing.T) {
	procs := &stubProcess{}
	m, err := New(Config{Hooks: trap.Hooks{Process: procs}})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	m.Trap(&trap.Registers{Vector: trap.ExcDivideError, CS: trap.UserCS})

	if len(procs.raised) != 1 || procs.raised[0].sig != trap.SignalDivideByZero {
		t.Fatalf("raised = %+v, want one divide-by-zero", procs.raised)
	}
	if procs.delivered != 1 {
		t.Fatalf("pending signals not drained on return to user mode")
	}
}

func TestKernelFaultHaltsMachine(t *testing.T) {
	var dump bytes.Buffer
	m, err := New(Config{Hooks: trap.Hooks{Halt: stubHalter{}, DumpTo: &dump}})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	halted := func() (h bool) {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(haltSentinel); !ok {
					panic(r)
				}
				h = true
			}
		}()
		m.Trap(&trap.Registers{Vector: trap.ExcPageFault, CS: trap.KernelCS})
		return false
	}()
	if !halted {
		t.Fatalf("kernel page fault did not halt")
	}
	if dump.Len() == 0 {
		t.Fatalf("no register dump produced")
	}
}

func TestSoftwareInterruptPrivilege(t *testing.T) {
	procs := &stubProcess{}
	syscalls := &stubSyscalls{result: 99}
	m, err := New(Config{Hooks: trap.Hooks{Process: procs, Syscall: syscalls}})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	// The syscall gate is reachable from user mode.
	regs := &trap.Registers{CS: trap.UserCS, EAX: 7}
	m.SoftwareInterrupt(trap.VecSyscall, regs)
	if syscalls.calls != 1 {
		t.Fatalf("syscall gate not reached, calls = %d", syscalls.calls)
	}
	if regs.EAX != 99 {
		t.Fatalf("EAX = %d, want syscall result 99", regs.EAX)
	}

	// Any other gate is not: the attempt faults and becomes a signal,
	// it never reaches the IRQ path.
	regs = &trap.Registers{CS: trap.UserCS}
	m.SoftwareInterrupt(trap.IRQBase+1, regs)
	if len(procs.raised) != 1 || procs.raised[0].sig != trap.SignalFault {
		t.Fatalf("raised = %+v, want one fault signal", procs.raised)
	}
}

type stubSyscalls struct {
	calls  int
	result int32
}

func (s *stubSyscalls) Dispatch(a0, a1, a2 uint32, num uint32, regs *trap.Registers) int32 {
	s.calls++
	return s.result
}

func TestInterleavedTypingAndReads(t *testing.T) {
	m, err := New(Config{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	term := m.Terminals.Executing()

	lines := make(chan string, 2)
	go func() {
		for i := 0; i < 2; i++ {
			buf := make([]byte, 32)
			n := term.Read(buf)
			lines <- string(buf[:n])
		}
	}()

	typeString(m, "one\n")
	typeString(m, "two\n")

	for _, want := range []string{"one\n", "two\n"} {
		select {
		case got := <-lines:
			if got != want {
				t.Fatalf("read %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}
