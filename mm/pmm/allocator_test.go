// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pmm

import (
	"testing"

	kpanic "github.com/armboot/kernel/internal/panic"
)

func newTestAllocator(numFrames uint32) *Allocator {
	// Table base right at frame 0 with a footprint of 1 frame (plenty for
	// numFrames small enough for these tests), so only frame 0 starts
	// reserved.
	return NewAllocator(numFrames*FrameSize, 0)
}

func TestNewAllocatorReservesBootFootprint(t *testing.T) {
	a := newTestAllocator(16)

	stats := a.Stats()
	if stats.Total != 16*FrameSize {
		t.Fatalf("Total = %d, want %d", stats.Total, 16*FrameSize)
	}

	// Frame 0 (table base) through the table's own 1-frame footprint are
	// pre-counted; the rest are free.
	if stats.Used != FrameSize {
		t.Errorf("Used = %d, want %d", stats.Used, FrameSize)
	}
	if stats.Free != 15*FrameSize {
		t.Errorf("Free = %d, want %d", stats.Free, 15*FrameSize)
	}
}

func TestAllocPageLifecycle(t *testing.T) {
	a := newTestAllocator(16)

	before := a.Stats()

	phys := a.Alloc(SizePage)
	if phys%FrameSize != 0 {
		t.Fatalf("Alloc returned unaligned address %#x", phys)
	}

	mid := a.Stats()
	if mid.Used != before.Used+FrameSize {
		t.Errorf("Used after alloc = %d, want %d", mid.Used, before.Used+FrameSize)
	}

	if got := a.RefRelease(phys); got != 0 {
		t.Errorf("RefRelease = %d, want 0", got)
	}

	after := a.Stats()
	if after != before {
		t.Errorf("Stats after alloc+release = %+v, want %+v", after, before)
	}
}

func TestAllocSectionIsNaturallyAligned(t *testing.T) {
	a := newTestAllocator(1024)

	phys := a.Alloc(SizeSection)
	if phys%(uint32(SizeSection)*FrameSize) != 0 {
		t.Errorf("section allocation %#x is not 1 MiB aligned", phys)
	}
}

func TestAllocWrapsCursorWhenFreeFramesPrecedeIt(t *testing.T) {
	a := newTestAllocator(4)

	first := a.Alloc(SizePage)
	second := a.Alloc(SizePage)
	third := a.Alloc(SizePage)
	if third != 3*FrameSize {
		t.Fatalf("third Alloc = %#x, want %#x (last frame)", third, 3*FrameSize)
	}

	a.RefRelease(first)
	a.RefRelease(second)

	// cursor now sits past `third`; the only free frames (first, second)
	// precede it, so the next alloc must wrap around to find them.
	fourth := a.Alloc(SizePage)
	if fourth != first {
		t.Errorf("Alloc after wrap = %#x, want %#x (first freed frame)", fourth, first)
	}
}

func TestAllocInvalidSizeRaisesIncompatibleParameter(t *testing.T) {
	a := newTestAllocator(16)

	fault := mustRecoverFault(t, func() { a.Alloc(3) })
	if fault.Code != kpanic.IncompatibleParameter {
		t.Errorf("Code = %v, want IncompatibleParameter", fault.Code)
	}
}

func TestAllocOutOfMemoryRaisesFault(t *testing.T) {
	a := newTestAllocator(2) // frame 0 reserved, frame 1 free

	a.Alloc(SizePage)

	fault := mustRecoverFault(t, func() { a.Alloc(SizePage) })
	if fault.Code != kpanic.OutOfMemory {
		t.Errorf("Code = %v, want OutOfMemory", fault.Code)
	}
}

func TestRefAcquireOnFreeFrameRaisesFault(t *testing.T) {
	a := newTestAllocator(16)

	fault := mustRecoverFault(t, func() { a.RefAcquire(8 * FrameSize) })
	if fault.Code != kpanic.AddRefToUnallocatedPage {
		t.Errorf("Code = %v, want AddRefToUnallocatedPage", fault.Code)
	}
}

func TestRefReleaseOnFreeFrameRaisesFault(t *testing.T) {
	a := newTestAllocator(16)

	fault := mustRecoverFault(t, func() { a.RefRelease(8 * FrameSize) })
	if fault.Code != kpanic.ReleaseUnallocatedPage {
		t.Errorf("Code = %v, want ReleaseUnallocatedPage", fault.Code)
	}
}

func TestRefAcquireNReleaseN(t *testing.T) {
	a := newTestAllocator(16)

	phys := a.Alloc(SizePage)
	a.RefAcquireN(phys, 1)

	before := a.Stats()
	a.RefReleaseN(phys, 1)
	after := a.Stats()

	if after.Used != before.Used {
		t.Errorf("first RefReleaseN dropped the count to 0 unexpectedly: before=%+v after=%+v", before, after)
	}

	a.RefReleaseN(phys, 1)
	final := a.Stats()
	if final.Used != before.Used-FrameSize {
		t.Errorf("Used after final release = %d, want %d", final.Used, before.Used-FrameSize)
	}
}

func TestReleaseLoaderFreesFootprint(t *testing.T) {
	// Table base at frame 4 leaves frames 0-3 as boot-image footprint for
	// ReleaseLoader to free; ReleaseLoader only releases frames strictly
	// below tableBaseFrame, so frame 4 (the table's own footprint) stays
	// reserved. refcountTableBase must be nonzero for this range to be
	// nonempty, unlike newTestAllocator's fixture.
	const refcountTableBase = 4 * FrameSize

	a := NewAllocator(32*FrameSize, refcountTableBase)

	before := a.Stats()
	if before.Used == 0 {
		t.Fatal("expected the boot footprint to already be accounted as used")
	}

	a.ReleaseLoader()

	after := a.Stats()
	if want := before.Used - 4*FrameSize; after.Used != want {
		t.Errorf("Used after ReleaseLoader = %d, want %d (table's own footprint stays reserved)", after.Used, want)
	}
}

// mustRecoverFault runs fn, expecting it to panic with a kpanic.Fault, and
// returns the recovered value.
func mustRecoverFault(t *testing.T, fn func()) (fault kpanic.Fault) {
	t.Helper()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic, got none")
		}

		f, ok := r.(kpanic.Fault)
		if !ok {
			t.Fatalf("panic value = %#v (%T), want kpanic.Fault", r, r)
		}

		fault = f
	}()

	fn()

	return
}
