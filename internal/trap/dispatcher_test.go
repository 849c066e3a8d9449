package trap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tinyrange/minikernel/internal/irq"
)

type raisedSignal struct {
	pid PID
	sig Signal
}

type fakeProcess struct {
	pid       PID
	raised    []raisedSignal
	delivered int
}

func (p *fakeProcess) ExecutingPID() PID           { return p.pid }
func (p *fakeProcess) Raise(pid PID, sig Signal)   { p.raised = append(p.raised, raisedSignal{pid, sig}) }
func (p *fakeProcess) DeliverPending(r *Registers) { p.delivered++ }

type fakeSyscalls struct {
	gotNum  uint32
	gotArgs [3]uint32
	result  int32
}

func (s *fakeSyscalls) Dispatch(a0, a1, a2 uint32, num uint32, regs *Registers) int32 {
	s.gotArgs = [3]uint32{a0, a1, a2}
	s.gotNum = num
	return s.result
}

// haltSentinel lets tests intercept the halt call, which by contract
// never returns.
type haltSentinel struct{}

type fakeHalter struct {
	halts int
}

func (h *fakeHalter) Halt() {
	h.halts++
	panic(haltSentinel{})
}

type fakeIRQController struct {
	eois []int
}

func (c *fakeIRQController) EnableLine(int)  {}
func (c *fakeIRQController) DisableLine(int) {}
func (c *fakeIRQController) EOI(line int)    { c.eois = append(c.eois, line) }

func newInstalled(t *testing.T, hooks Hooks) (*Dispatcher, *irq.Registry) {
	t.Helper()
	reg := irq.NewRegistry(&fakeIRQController{})
	d := New(reg, hooks)
	if err := d.Install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	return d, reg
}

// dispatchExpectingHalt runs Dispatch and swallows the halt sentinel.
// Returns true if the halt fired.
func dispatchExpectingHalt(d *Dispatcher, regs *Registers) (halted bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(haltSentinel); !ok {
				panic(r)
			}
			halted = true
		}
	}()
	d.Dispatch(regs)
	return false
}

func TestKernelExceptionAlwaysHalts(t *testing.T) {
	for vec := uint32(0); vec < NumExceptions; vec++ {
		halter := &fakeHalter{}
		var dump bytes.Buffer
		d, _ := newInstalled(t, Hooks{Halt: halter, DumpTo: &dump})

		regs := &Registers{Vector: vec, CS: KernelCS, EAX: 0xdeadbeef}
		if !dispatchExpectingHalt(d, regs) {
			t.Fatalf("vector %d: kernel exception returned instead of halting", vec)
		}
		if halter.halts != 1 {
			t.Errorf("vector %d: halts = %d, want 1", vec, halter.halts)
		}
		if !strings.Contains(dump.String(), ExceptionName(vec)) {
			t.Errorf("vector %d: dump missing exception name %q", vec, ExceptionName(vec))
		}
		if !strings.Contains(dump.String(), "0xdeadbeef") {
			t.Errorf("vector %d: dump missing register contents", vec)
		}
	}
}

func TestUserExceptionRaisesSignal(t *testing.T) {
	for vec := uint32(0); vec < NumExceptions; vec++ {
		procs := &fakeProcess{pid: 42}
		halter := &fakeHalter{}
		d, _ := newInstalled(t, Hooks{Process: procs, Halt: halter})

		regs := &Registers{Vector: vec, CS: UserCS}
		d.Dispatch(regs)

		if halter.halts != 0 {
			t.Fatalf("vector %d: user exception halted the kernel", vec)
		}
		if len(procs.raised) != 1 {
			t.Fatalf("vector %d: %d signals raised, want 1", vec, len(procs.raised))
		}
		want := SignalFault
		if vec == ExcDivideError {
			want = SignalDivideByZero
		}
		if got := procs.raised[0]; got.pid != 42 || got.sig != want {
			t.Errorf("vector %d: raised %v against pid %d, want %v against 42", vec, got.sig, got.pid, want)
		}
	}
}

func TestSignalsDrainedOnlyForUserContext(t *testing.T) {
	procs := &fakeProcess{}
	d, reg := newInstalled(t, Hooks{Process: procs})
	if err := reg.Register(irq.LineTimer, func() {}); err != nil {
		t.Fatalf("register: %v", err)
	}

	d.Dispatch(&Registers{Vector: IRQBase + irq.LineTimer, CS: KernelCS})
	if procs.delivered != 0 {
		t.Fatalf("signals delivered for kernel-context trap")
	}

	d.Dispatch(&Registers{Vector: IRQBase + irq.LineTimer, CS: UserCS})
	if procs.delivered != 1 {
		t.Fatalf("delivered = %d after user-context trap, want 1", procs.delivered)
	}
}

func TestSignalDrainHappensAfterPathCompletes(t *testing.T) {
	var order []string
	procs := &orderedProcess{order: &order}
	d, reg := newInstalled(t, Hooks{Process: procs})
	if err := reg.Register(3, func() { order = append(order, "irq") }); err != nil {
		t.Fatalf("register: %v", err)
	}

	d.Dispatch(&Registers{Vector: IRQBase + 3, CS: UserCS})
	if len(order) != 2 || order[0] != "irq" || order[1] != "deliver" {
		t.Fatalf("order = %v, want [irq deliver]", order)
	}
}

type orderedProcess struct {
	order *[]string
}

func (p *orderedProcess) ExecutingPID() PID         { return 0 }
func (p *orderedProcess) Raise(PID, Signal)         {}
func (p *orderedProcess) DeliverPending(*Registers) { *p.order = append(*p.order, "deliver") }

func TestSyscallPathWritesResult(t *testing.T) {
	sys := &fakeSyscalls{result: -7}
	d, _ := newInstalled(t, Hooks{Syscall: sys})

	regs := &Registers{
		Vector: VecSyscall,
		CS:     KernelCS,
		EAX:    4,
		EBX:    10,
		ECX:    20,
		EDX:    30,
	}
	d.Dispatch(regs)

	if sys.gotNum != 4 {
		t.Errorf("syscall num = %d, want 4", sys.gotNum)
	}
	if sys.gotArgs != [3]uint32{10, 20, 30} {
		t.Errorf("syscall args = %v, want [10 20 30]", sys.gotArgs)
	}
	if int32(regs.EAX) != -7 {
		t.Errorf("EAX = %d, want -7", int32(regs.EAX))
	}
}

func TestIRQPathRoutesToLine(t *testing.T) {
	d, reg := newInstalled(t, Hooks{})

	var lines []int
	for line := 0; line < NumIRQ; line++ {
		line := line
		if err := reg.Register(line, func() { lines = append(lines, line) }); err != nil {
			t.Fatalf("register line %d: %v", line, err)
		}
	}
	for line := 0; line < NumIRQ; line++ {
		d.Dispatch(&Registers{Vector: uint32(IRQBase + line), CS: KernelCS})
	}
	for i, got := range lines {
		if got != i {
			t.Fatalf("IRQ dispatch order = %v", lines)
		}
	}
	if len(lines) != NumIRQ {
		t.Fatalf("dispatched %d lines, want %d", len(lines), NumIRQ)
	}
}

func TestUnknownVectorIgnored(t *testing.T) {
	halter := &fakeHalter{}
	procs := &fakeProcess{}
	d, _ := newInstalled(t, Hooks{Halt: halter, Process: procs})

	// In-range vector with no specific role, and a wild out-of-range one.
	d.Dispatch(&Registers{Vector: 0x55, CS: KernelCS})
	d.Dispatch(&Registers{Vector: 0x1ff, CS: KernelCS})

	if halter.halts != 0 {
		t.Errorf("unknown vector halted the machine")
	}
	if len(procs.raised) != 0 {
		t.Errorf("unknown vector raised a signal")
	}
}

func TestInstallOnce(t *testing.T) {
	d := New(irq.NewRegistry(&fakeIRQController{}), Hooks{})
	if err := d.Install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := d.Install(); err != ErrInstalled {
		t.Fatalf("second install = %v, want ErrInstalled", err)
	}
}

func TestOnlySyscallGateIsUserInvocable(t *testing.T) {
	d, _ := newInstalled(t, Hooks{})
	for v := uint32(0); v < NumVectors; v++ {
		want := v == VecSyscall
		if got := d.UserInvocable(v); got != want {
			t.Errorf("vector 0x%02x user-invocable = %v, want %v", v, got, want)
		}
	}
	if d.UserInvocable(NumVectors) {
		t.Errorf("out-of-range vector reported user-invocable")
	}
}
