// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmm

import "sync/atomic"

// InterruptController disables and re-enables the CPU's interrupt lines
// around a Spinlock's critical section. On real hardware this is
// satisfied by *arm.CPU; it is left nil for host-side tests and for any
// simulation that has no interrupt controller to drive.
type InterruptController interface {
	DisableInterrupts()
	EnableInterrupts()
}

// Spinlock is a test-and-set mutual-exclusion primitive with sequentially
// consistent acquire/release semantics. Acquire disables interrupts before
// spinning the compare-and-swap loop; releasing the returned Guard clears
// the flag and re-enables interrupts. Every lock in this tree is a leaf
// lock: holding one across code that may itself acquire a lock is
// forbidden, since nothing here may suspend.
type Spinlock struct {
	flag uint32
	irq  InterruptController
}

// NewSpinlock returns a Spinlock guarded by irq, which may be nil.
func NewSpinlock(irq InterruptController) *Spinlock {
	return &Spinlock{irq: irq}
}

// Guard represents a held Spinlock; Release drops it.
type Guard struct {
	lock *Spinlock
}

// Acquire disables interrupts, busy-loops the CAS until the flag is won,
// and returns a Guard scoping the critical section.
func (l *Spinlock) Acquire() Guard {
	if l.irq != nil {
		l.irq.DisableInterrupts()
	}

	for !atomic.CompareAndSwapUint32(&l.flag, 0, 1) {
	}

	return Guard{lock: l}
}

// Release clears the flag and re-enables interrupts.
func (g Guard) Release() {
	atomic.StoreUint32(&g.lock.flag, 0)

	if g.lock.irq != nil {
		g.lock.irq.EnableInterrupts()
	}
}
