// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pmm implements the kernel's reference-counted physical frame
// allocator: a dense per-frame refcount table handed out at four fixed
// granularities (page, first-level table, section, supersection), guarded
// throughout by a single Spinlock.
package pmm

import (
	"fmt"

	kpanic "github.com/armboot/kernel/internal/panic"
)

// FrameSize is the fixed unit of physical allocation.
const FrameSize = 4096

// Size is the granularity of a single FrameAllocator allocation, expressed
// in contiguous, naturally aligned 4 KiB frames.
type Size uint32

const (
	SizePage         Size = 1    // one second-level table slot (4 KiB)
	SizeTable        Size = 4    // a first-level translation table (16 KiB)
	SizeSection      Size = 256  // one first-level slot (1 MiB)
	SizeSupersection Size = 4096 // 16 first-level slots sharing one encoding (16 MiB)
)

func (s Size) valid() bool {
	switch s {
	case SizePage, SizeTable, SizeSection, SizeSupersection:
		return true
	default:
		return false
	}
}

// MemStats reports the allocator's accounting, in bytes.
type MemStats struct {
	Total uint32
	Used  uint32
	Free  uint32
}

// Allocator is a reference-counted physical frame allocator. Every public
// method takes the allocator's spinlock for its entire body; none may
// suspend, and OutOfMemory/AddRefToUnallocatedPage/ReleaseUnallocatedPage
// are raised as a kpanic.Fault rather than returned, per the design this
// is ported from: the caller either has no way to back off (boot-time
// exhaustion) or is a layer, like mm/vmm.AddressSpace, specifically
// positioned to recover and roll back.
type Allocator struct {
	lock *Spinlock

	refcount        []uint8
	numFrames       uint32
	allocatedFrames uint32
	tableBaseFrame  uint32

	cursor map[Size]uint32

	scribble func(phys uint32, size uint32)
}

// NewAllocator constructs a FrameAllocator over totalBytes of physical
// memory, placing its refcount table at refcountTableBase. Every frame
// below the table's end (boot image footprint plus the table's own
// footprint) is pre-counted to 1 so init can never hand it out.
func NewAllocator(totalBytes uint32, refcountTableBase uint32) *Allocator {
	numFrames := totalBytes / FrameSize
	tableFootprintFrames := (numFrames + FrameSize - 1) / FrameSize

	a := &Allocator{
		lock:           NewSpinlock(nil),
		refcount:       make([]uint8, numFrames),
		numFrames:      numFrames,
		tableBaseFrame: refcountTableBase / FrameSize,
		cursor: map[Size]uint32{
			SizePage:         0,
			SizeTable:        0,
			SizeSection:      0,
			SizeSupersection: 0,
		},
	}

	firstFreeFrame := a.tableBaseFrame + tableFootprintFrames

	for i := uint32(0); i < numFrames && i < firstFreeFrame; i++ {
		a.refcount[i] = 1
		a.allocatedFrames++
	}

	return a
}

// SetInterruptController wires the Spinlock to disable/enable interrupts
// around its critical section. Called once from boot glue with the real
// arm.CPU; left unset (nil) on host builds.
func (a *Allocator) SetInterruptController(irq InterruptController) {
	a.lock = NewSpinlock(irq)
}

// SetScribble installs the sentinel-fill hook Alloc calls on every freshly
// returned region, for debuggability. Left nil on host builds, where the
// returned address has no backing physical memory to write.
func (a *Allocator) SetScribble(fn func(phys uint32, size uint32)) {
	a.scribble = fn
}

// Alloc returns the physical address of size contiguous, naturally aligned
// frames, all newly at refcount 1. The search uses a per-size cursor that
// advances past the last successful allocation (first-fit with
// wrap-around). Raises kpanic.IncompatibleParameter for any size other
// than the four named constants, and kpanic.OutOfMemory if no run of free
// frames satisfies the request.
func (a *Allocator) Alloc(size Size) uint32 {
	if !size.valid() {
		kpanic.Raise(kpanic.IncompatibleParameter, fmt.Sprintf("pmm: invalid allocation size %d frames", size))
	}

	g := a.lock.Acquire()
	defer g.Release()

	n := uint32(size)
	start := a.cursor[size]
	entry := start

	for {
		if a.runFree(entry, n) {
			for i := uint32(0); i < n; i++ {
				a.refcount[entry+i] = 1
			}

			a.allocatedFrames += n
			a.cursor[size] = a.wrap(entry + n)

			phys := entry * FrameSize

			if a.scribble != nil {
				a.scribble(phys, n*FrameSize)
			}

			return phys
		}

		entry = a.wrap(entry + n)

		if entry == start {
			kpanic.Raise(kpanic.OutOfMemory, "pmm: no contiguous free frames satisfy the request")
		}
	}
}

func (a *Allocator) runFree(entry, n uint32) bool {
	if entry+n > a.numFrames {
		return false
	}

	for i := uint32(0); i < n; i++ {
		if a.refcount[entry+i] != 0 {
			return false
		}
	}

	return true
}

func (a *Allocator) wrap(entry uint32) uint32 {
	if entry >= a.numFrames {
		return 0
	}

	return entry
}

// RefAcquire increments phys's refcount and returns the new count. Raises
// kpanic.AddRefToUnallocatedPage if the frame is currently free.
func (a *Allocator) RefAcquire(phys uint32) uint8 {
	g := a.lock.Acquire()
	defer g.Release()

	return a.refAcquireLocked(phys)
}

// RefAcquireN acquires a reference on count consecutive frames starting at
// phys, under a single critical section.
func (a *Allocator) RefAcquireN(phys uint32, count uint32) {
	g := a.lock.Acquire()
	defer g.Release()

	for i := uint32(0); i < count; i++ {
		a.refAcquireLocked(phys + i*FrameSize)
	}
}

func (a *Allocator) refAcquireLocked(phys uint32) uint8 {
	i := phys / FrameSize

	if a.refcount[i] == 0 {
		kpanic.Raise(kpanic.AddRefToUnallocatedPage, fmt.Sprintf("pmm: ref_acquire on unallocated frame %#08x", phys))
	}

	a.refcount[i]++

	return a.refcount[i]
}

// RefRelease decrements phys's refcount and returns the new count. Raises
// kpanic.ReleaseUnallocatedPage if the frame is already free.
func (a *Allocator) RefRelease(phys uint32) uint8 {
	g := a.lock.Acquire()
	defer g.Release()

	return a.refReleaseLocked(phys)
}

// RefReleaseN releases a reference on count consecutive frames starting at
// phys, under a single critical section.
func (a *Allocator) RefReleaseN(phys uint32, count uint32) {
	g := a.lock.Acquire()
	defer g.Release()

	for i := uint32(0); i < count; i++ {
		a.refReleaseLocked(phys + i*FrameSize)
	}
}

func (a *Allocator) refReleaseLocked(phys uint32) uint8 {
	i := phys / FrameSize

	if a.refcount[i] == 0 {
		kpanic.Raise(kpanic.ReleaseUnallocatedPage, fmt.Sprintf("pmm: ref_release on unallocated frame %#08x", phys))
	}

	a.refcount[i]--

	if a.refcount[i] == 0 {
		a.allocatedFrames--
	}

	return a.refcount[i]
}

// Stats returns the allocator's (total, used, free) accounting in bytes.
func (a *Allocator) Stats() MemStats {
	g := a.lock.Acquire()
	defer g.Release()

	return MemStats{
		Total: a.numFrames * FrameSize,
		Used:  a.allocatedFrames * FrameSize,
		Free:  (a.numFrames - a.allocatedFrames) * FrameSize,
	}
}

// ReleaseLoader is a one-shot operation invoked by the kernel once it has
// copied everything it needs out of the boot loader: it decrements
// refcounts on every frame below the refcount table's base, freeing the
// boot image's original footprint.
func (a *Allocator) ReleaseLoader() {
	g := a.lock.Acquire()
	defer g.Release()

	for i := uint32(0); i < a.tableBaseFrame; i++ {
		a.refReleaseLocked(i * FrameSize)
	}
}
