package trap

// Trap vector layout. Vectors 0..19 are CPU exceptions, 0x20..0x2f are
// the remapped device IRQ lines, 0x80 is the software syscall gate.
const (
	NumVectors = 256

	// NumExceptions is the number of defined CPU exception vectors.
	NumExceptions = 20

	// IRQBase is the vector the interrupt controller is remapped to.
	IRQBase = 0x20
	NumIRQ  = 16

	// VecSyscall is the single user-invocable vector.
	VecSyscall = 0x80
)

// Exception vector numbers.
const (
	ExcDivideError = 0
	ExcDebug       = 1
	ExcNMI         = 2
	ExcBreakpoint  = 3
	ExcOverflow    = 4
	ExcBoundRange  = 5
	ExcInvalidOp   = 6
	ExcNoDevice    = 7
	ExcDoubleFault = 8
	ExcCoprocessor = 9
	ExcInvalidTSS  = 10
	ExcNoSegment   = 11
	ExcStackFault  = 12
	ExcProtection  = 13
	ExcPageFault   = 14
	ExcReserved    = 15
	ExcFPU         = 16
	ExcAlignment   = 17
	ExcMachine     = 18
	ExcSIMD        = 19
)

var exceptionNames = [NumExceptions]string{
	"Divide error exception",
	"Debug exception",
	"Nonmaskable interrupt",
	"Breakpoint exception",
	"Overflow exception",
	"Bound range exceeded exception",
	"Invalid opcode exception",
	"Device not available exception",
	"Double fault exception",
	"Coprocessor segment overrun",
	"Invalid TSS exception",
	"Segment not present",
	"Stack fault exception",
	"General protection exception",
	"Page-fault exception",
	"Entry reserved",
	"Floating-point error",
	"Alignment check exception",
	"Machine-check exception",
	"SIMD floating-point exception",
}

// ExceptionName returns the human-readable name for an exception vector.
func ExceptionName(vector uint32) string {
	if vector < NumExceptions {
		return exceptionNames[vector]
	}
	return "Unknown exception"
}
