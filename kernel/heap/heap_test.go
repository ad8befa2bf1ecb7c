// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package heap

import (
	"testing"

	"github.com/armboot/kernel/mm/pmm"
)

func newTestHeap(numFrames uint32) (*Heap, *pmm.Allocator) {
	frames := pmm.NewAllocator(numFrames*pmm.FrameSize, 0)
	return New(frames), frames
}

func TestAllocSmallObjectsShareOneFrame(t *testing.T) {
	h, frames := newTestHeap(16)

	before := frames.Stats()

	a, err := h.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	b, err := h.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if a == b {
		t.Fatalf("two allocations returned the same address")
	}

	after := frames.Stats()
	if after.Used != before.Used+pmm.FrameSize {
		t.Errorf("Used after two small allocs = %d, want %d (one shared frame)", after.Used, before.Used+pmm.FrameSize)
	}
}

func TestAllocMediumObjectUsesMediumBucket(t *testing.T) {
	h, _ := newTestHeap(16)

	a, err := h.Alloc(500)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	b, err := h.Alloc(500)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if b-a != roundUp(500, mediumGranularity) {
		t.Errorf("stride between medium allocations = %d, want %d", b-a, roundUp(500, mediumGranularity))
	}
}

func TestFreeReleasesFrameWhenBlockEmpties(t *testing.T) {
	h, frames := newTestHeap(16)

	before := frames.Stats()

	a, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	h.Free(a)

	after := frames.Stats()
	if after != before {
		t.Errorf("Stats after freeing the only entry = %+v, want %+v (frame reclaimed)", after, before)
	}
}

func TestFreeThenAllocReusesSlot(t *testing.T) {
	h, frames := newTestHeap(16)

	a, err := h.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := h.Alloc(16); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	h.Free(a)

	before := frames.Stats()
	c, err := h.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	after := frames.Stats()

	if c != a {
		t.Errorf("Alloc after Free = %#x, want reused slot %#x", c, a)
	}
	if after != before {
		t.Errorf("Stats changed on a reused slot: %+v -> %+v", before, after)
	}
}

func TestAllocLargeObjectTakesWholeSection(t *testing.T) {
	h, _ := newTestHeap(1024)

	a, err := h.Alloc(300000)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if a%(uint32(pmm.SizeSection)*pmm.FrameSize) != 0 {
		t.Errorf("large allocation %#x is not section-aligned", a)
	}
}

func TestAllocTooLargeFails(t *testing.T) {
	h, _ := newTestHeap(4)

	if _, err := h.Alloc(32 << 20); err != ErrTooLarge {
		t.Errorf("Alloc(32MiB) = %v, want ErrTooLarge", err)
	}
}
