// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vmm

import (
	"errors"
	"testing"

	"github.com/armboot/kernel/mm/pmm"
)

// fakeMemory is a Go slice standing in for physical RAM, so the
// reservation/commit algorithms can be exercised host-side against the
// addresses a real *pmm.Allocator hands out.
type fakeMemory struct {
	ram []uint32
}

func (m *fakeMemory) Words(phys uint32, n int) []uint32 {
	start := phys / 4
	return m.ram[start : start+uint32(n)]
}

func newTestSpace(numFrames uint32, startEntry, numEntries uint32, refCounted bool) (*AddressSpace, *pmm.Allocator) {
	frames := pmm.NewAllocator(numFrames*pmm.FrameSize, 0)
	mem := &fakeMemory{ram: make([]uint32, numFrames*pmm.FrameSize/4)}
	return New(frames, startEntry, numEntries, refCounted, mem), frames
}

func TestReserveAllocatePageRoundTrip(t *testing.T) {
	a, _ := newTestSpace(64, UserStartEntry, FirstLevelUserEntries, true)

	vaddr, err := a.ReserveAllocate(1, Page)
	if err != nil {
		t.Fatalf("ReserveAllocate: %v", err)
	}

	state, err := a.BlockStateAt(vaddr, Page)
	if err != nil || state != Committed {
		t.Fatalf("BlockStateAt = (%v, %v), want (Committed, nil)", state, err)
	}

	phys, err := a.VirtualToPhysical(vaddr)
	if err != nil {
		t.Fatalf("VirtualToPhysical: %v", err)
	}
	if phys%pmm.FrameSize != 0 {
		t.Errorf("resolved physical address %#x is not frame-aligned", phys)
	}

	back, err := a.PhysicalToVirtual(phys)
	if err != nil || back != vaddr {
		t.Errorf("PhysicalToVirtual = (%#x, %v), want (%#x, nil)", back, err, vaddr)
	}

	if err := a.Deallocate(vaddr, 1, Page); err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	if state, _ := a.BlockStateAt(vaddr, Page); state != Reserved {
		t.Errorf("state after Deallocate = %v, want Reserved", state)
	}

	if err := a.Release(vaddr, 1, Page); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if state, _ := a.BlockStateAt(vaddr, Page); state != Free {
		t.Errorf("state after Release = %v, want Free", state)
	}
}

func TestReserveSectionNaturallyAligned(t *testing.T) {
	a, _ := newTestSpace(1024, UserStartEntry, FirstLevelUserEntries, true)

	vaddr, err := a.Reserve(1, Section)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if vaddr%SectionSize != 0 {
		t.Errorf("section reservation %#x is not 1 MiB aligned", vaddr)
	}
}

func TestReserveAtOutOfBounds(t *testing.T) {
	a, _ := newTestSpace(64, SupervisorStartEntry, FirstLevelSupervisorEntries-SupervisorStartEntry, true)

	// address 0 falls in the user half, outside this supervisor space's window.
	if _, err := a.ReserveAt(0, 1, Page); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReserveAt(0) = %v, want ErrOutOfBounds", err)
	}
}

func TestAllocatePartialFailureRollsBack(t *testing.T) {
	// 8 frames total: frame 0 is the refcount table footprint, frames 4-7
	// the first-level table and frame 1 the second-level table Reserve
	// creates, leaving enough free frames to reserve several pages but not
	// enough to commit them all.
	a, frames := newTestSpace(8, UserStartEntry, FirstLevelUserEntries, true)

	vaddr, err := a.Reserve(4, Page)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// Drain the allocator, then hand two frames back so Allocate runs out
	// partway through committing the 4 reserved pages.
	var drained []uint32
	for {
		ok := func() (ok bool) {
			defer func() {
				if recover() != nil {
					ok = false
				}
			}()
			drained = append(drained, frames.Alloc(pmm.SizePage))
			return true
		}()
		if !ok {
			break
		}
	}
	for _, phys := range drained[len(drained)-2:] {
		frames.RefRelease(phys)
	}

	before := frames.Stats()

	err = a.Allocate(vaddr, 4, Page)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Allocate = %v, want ErrOutOfMemory", err)
	}

	for i := uint32(0); i < 4; i++ {
		state, err := a.BlockStateAt(vaddr+i*PageSize, Page)
		if err != nil || state != Reserved {
			t.Errorf("page %d state = (%v, %v), want (Reserved, nil) after rollback", i, state, err)
		}
	}

	after := frames.Stats()
	if after.Used != before.Used {
		t.Errorf("Used after failed Allocate+rollback = %d, want %d (unchanged)", after.Used, before.Used)
	}
}

func TestReleaseDirectlyCommittedSectionFails(t *testing.T) {
	a, _ := newTestSpace(1024, UserStartEntry, FirstLevelUserEntries, true)

	vaddr, err := a.ReserveAllocate(1, Section)
	if err != nil {
		t.Fatalf("ReserveAllocate: %v", err)
	}

	// A Committed, non-table section cannot be released directly -
	// Deallocate must run first.
	if err := a.Release(vaddr, 1, Section); !errors.Is(err, ErrSomeBlocksNotReserved) {
		t.Errorf("Release on committed section = %v, want ErrSomeBlocksNotReserved", err)
	}
}

func TestReleaseDestroysEmptySecondLevelTable(t *testing.T) {
	a, frames := newTestSpace(64, UserStartEntry, FirstLevelUserEntries, true)

	vaddr, err := a.Reserve(1, Page)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	before := frames.Stats()

	if err := a.Release(vaddr, 1, Page); err != nil {
		t.Fatalf("Release: %v", err)
	}

	after := frames.Stats()
	// Releasing the only reserved page in a freshly created second-level
	// table must also free the table's own backing frame.
	if after.Used >= before.Used {
		t.Errorf("Used after releasing the last page = %d, want less than %d (table frame freed)", after.Used, before.Used)
	}
}

func TestMapIdentityOverlayDoesNotBumpRefcount(t *testing.T) {
	frames := pmm.NewAllocator(1024*pmm.FrameSize, 0)
	mem := &fakeMemory{ram: make([]uint32, 1024*pmm.FrameSize/4)}
	overlay := New(frames, UserStartEntry, FirstLevelUserEntries, false, mem)

	phys := frames.Alloc(pmm.SizeSection)

	vaddr, err := overlay.ReserveAt(phys, 1, Section)
	if err != nil {
		t.Fatalf("ReserveAt: %v", err)
	}
	if err := overlay.Map(vaddr, phys, 1, Section); err != nil {
		t.Fatalf("Map: %v", err)
	}

	// If Map had bumped the refcount a second time, one release of the
	// section's original allocation would leave it still allocated.
	before := frames.Stats()
	frames.RefReleaseN(phys, uint32(pmm.SizeSection))
	after := frames.Stats()

	want := before.Used - uint32(pmm.SizeSection)*pmm.FrameSize
	if after.Used != want {
		t.Errorf("Used after one RefReleaseN = %d, want %d (Map must not add its own reference on a non-reference-counted space)", after.Used, want)
	}
}

func TestBlockStateAtUnreservedPageIsFree(t *testing.T) {
	a, _ := newTestSpace(64, UserStartEntry, FirstLevelUserEntries, true)

	state, err := a.BlockStateAt(0, Page)
	if err != nil || state != Free {
		t.Errorf("BlockStateAt(0) = (%v, %v), want (Free, nil)", state, err)
	}
}

func TestVirtualToPhysicalUnmappedFails(t *testing.T) {
	a, _ := newTestSpace(64, UserStartEntry, FirstLevelUserEntries, true)

	if _, err := a.VirtualToPhysical(0); !errors.Is(err, ErrAddressNotMapped) {
		t.Errorf("VirtualToPhysical(0) = %v, want ErrAddressNotMapped", err)
	}
}

func TestCloseReleasesAllBackingFrames(t *testing.T) {
	frames := pmm.NewAllocator(512*pmm.FrameSize, 0)
	mem := &fakeMemory{ram: make([]uint32, 512*pmm.FrameSize/4)}
	baseline := frames.Stats()

	a := New(frames, UserStartEntry, FirstLevelUserEntries, true, mem)

	if _, err := a.ReserveAllocate(2, Page); err != nil {
		t.Fatalf("ReserveAllocate(Page): %v", err)
	}
	if _, err := a.ReserveAllocate(1, Section); err != nil {
		t.Fatalf("ReserveAllocate(Section): %v", err)
	}

	a.Close()

	if stats := frames.Stats(); stats != baseline {
		t.Errorf("Stats after Close = %+v, want %+v (back to pre-AddressSpace baseline)", stats, baseline)
	}
}
