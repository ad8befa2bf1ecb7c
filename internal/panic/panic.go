// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package panic provides the kernel's terminal fault reporting path: an
// enumerated code taxonomy and a Halt function that prints a diagnostic to
// the UART sink and parks the CPU in a wait-for-event loop.
//
// Halt is for invariant violations the caller has no way to recover from
// (corrupted refcount tables, a nonsensical allocation request, boot
// preconditions that don't hold). Every other failure in this codebase is a
// typed error value instead. This package has no MMIO dependency of its
// own: the diagnostic sink and the idle primitive are both hooks, wired to
// the real UART and arm.CPU.WaitForEvent once from boot glue, which keeps
// Halt exercisable from host tests.
package panic

import (
	"fmt"
	"runtime"
)

// Code enumerates the reasons the kernel can come to a terminal halt.
type Code int

const (
	OutOfMemory Code = iota
	AddRefToUnallocatedPage
	ReleaseUnallocatedPage
	IncompatibleParameter
	AssertionFailure
	NonZeroBase
	NoMemoryTag
)

func (c Code) String() string {
	switch c {
	case OutOfMemory:
		return "out of memory"
	case AddRefToUnallocatedPage:
		return "attempted to add a reference to an unallocated page"
	case ReleaseUnallocatedPage:
		return "attempted to release an unallocated page"
	case IncompatibleParameter:
		return "incompatible parameter"
	case AssertionFailure:
		return "assertion failure"
	case NonZeroBase:
		return "system RAM not based at address 0"
	case NoMemoryTag:
		return "ATAG chain has no memory tag"
	default:
		return "unknown panic code"
	}
}

// Sink is the byte-stream output used for the panic diagnostic. Defaults to
// the Go runtime's builtin print, overridden by boot glue to route through
// the board's UART sink once it exists.
var Sink = func(s string) { print(s) }

// Idle is invoked in a loop once the diagnostic has been printed. Defaults
// to runtime.Gosched so the default build never parks a real core; boot
// glue overrides it with arm.CPU.WaitForEvent.
var Idle = func() { runtime.Gosched() }

// SetSink overrides the diagnostic output hook.
func SetSink(fn func(string)) { Sink = fn }

// SetIdle overrides the post-diagnostic idle hook, called once per loop
// iteration after Halt reports its message.
func SetIdle(fn func()) { Idle = fn }

// Halt reports code and msg on the diagnostic sink and never returns.
func Halt(code Code, msg string) {
	Sink(fmt.Sprintf("Kernel Panic\r\n%d %s\r\n%s\r\n", int(code), code, msg))

	for {
		Idle()
	}
}

// Fault is the value Raise panics with. A caller positioned to recover and
// roll back part of its own operation (mm/vmm.AddressSpace.Allocate does
// this for Fault{Code: OutOfMemory}, undoing already-committed blocks
// before returning a typed error) may recover and inspect Code; anything
// that reaches the top of a goroutine's call stack uncaught should be
// reported with Halt instead.
type Fault struct {
	Code Code
	Msg  string
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Msg)
}

// Raise panics with a Fault built from code and msg, so every invariant
// violation in the tree carries a Code a recover() can inspect instead of
// an opaque panic value.
func Raise(code Code, msg string) {
	panic(Fault{Code: code, Msg: msg})
}
