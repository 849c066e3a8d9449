package trap

import (
	"fmt"
	"io"
)

// Code segment selectors. The privilege level of the interrupted context
// is decided by which code segment it was running in.
const (
	KernelCS uint32 = 0x0010
	UserCS   uint32 = 0x0023
)

// Registers is the full interrupted-context snapshot pushed by the trap
// entry sequence before the dispatcher runs. One instance exists per
// trap; the dispatch chain owns it exclusively and mutates it only on
// the syscall path (return value) or when a signal handler is being set
// up on the return path.
type Registers struct {
	Vector    uint32
	ErrorCode uint32

	EAX, EBX, ECX, EDX uint32
	ESI, EDI           uint32
	EBP, ESP           uint32
	EIP                uint32
	EFlags             uint32

	CS, DS, ES, FS, GS, SS uint32

	CR0, CR2, CR3, CR4 uint32
}

// FromUser reports whether the snapshot was taken from user-privilege
// code.
func (r *Registers) FromUser() bool {
	return r.CS == UserCS
}

// DumpTo writes the snapshot in human-readable form, one register per
// line. Used for the fatal kernel-exception dump.
func (r *Registers) DumpTo(w io.Writer) {
	rows := []struct {
		name  string
		value uint32
	}{
		{"vector", r.Vector},
		{"error_code", r.ErrorCode},
		{"eax", r.EAX},
		{"ebx", r.EBX},
		{"ecx", r.ECX},
		{"edx", r.EDX},
		{"esi", r.ESI},
		{"edi", r.EDI},
		{"ebp", r.EBP},
		{"esp", r.ESP},
		{"eip", r.EIP},
		{"eflags", r.EFlags},
		{"cs", r.CS},
		{"ds", r.DS},
		{"es", r.ES},
		{"fs", r.FS},
		{"gs", r.GS},
		{"ss", r.SS},
		{"cr0", r.CR0},
		{"cr2", r.CR2},
		{"cr3", r.CR3},
		{"cr4", r.CR4},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-11s 0x%08x\n", row.name+":", row.value)
	}
}
