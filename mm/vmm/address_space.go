// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package vmm implements the kernel's virtual address space: a two-level
// ARM short-descriptor page table exposing Free/Reserved/Committed state at
// page, section, and supersection granularity. An AddressSpace never talks
// to the MMU directly — mm/paging is the only package that loads a table
// base register — so every method here is exercisable on the host with a
// fake Memory and FrameAllocator standing in for physical RAM.
package vmm

import (
	kpanic "github.com/armboot/kernel/internal/panic"
	"github.com/armboot/kernel/mm/pmm"
)

// FrameAllocator is the subset of *pmm.Allocator an AddressSpace needs.
// OutOfMemory, AddRefToUnallocatedPage, and ReleaseUnallocatedPage are
// raised as a kpanic.Fault by implementations, per mm/pmm's contract;
// Allocate recovers the OutOfMemory case to roll back a partial
// allocation.
type FrameAllocator interface {
	Alloc(size pmm.Size) uint32
	RefAcquire(phys uint32) uint8
	RefAcquireN(phys uint32, count uint32)
	RefRelease(phys uint32) uint8
	RefReleaseN(phys uint32, count uint32)
}

// AddressSpace is a two-level page table governing the virtual addresses
// whose first-level index falls in [startEntry, startEntry+numEntries).
// Every AddressSpace owns a full 4-frame (4096-entry) first-level table
// regardless of that window's size, so a supervisor and a user space can
// coexist in a split TTBR0/TTBR1 pair without aliasing each other's
// otherwise-unused entries.
type AddressSpace struct {
	lock   *pmm.Spinlock
	frames FrameAllocator
	mem    Memory

	tablePhys        uint32
	startEntry       uint32
	numEntries       uint32
	referenceCounted bool
}

// New constructs an AddressSpace governing first-level indices
// [startEntry, startEntry+numEntries). mem may be nil, selecting the
// production Memory that dereferences physical addresses directly; tests
// pass a fake backed by a Go slice.
func New(frames FrameAllocator, startEntry, numEntries uint32, referenceCounted bool, mem Memory) *AddressSpace {
	if mem == nil {
		mem = physMemory{}
	}

	a := &AddressSpace{
		lock:             pmm.NewSpinlock(nil),
		frames:           frames,
		mem:              mem,
		tablePhys:        frames.Alloc(pmm.SizeTable),
		startEntry:       startEntry,
		numEntries:       numEntries,
		referenceCounted: referenceCounted,
	}

	table := a.firstLevelTable()
	for i := range table {
		table[i] = uint32(freeDescriptor())
	}

	return a
}

// NewSupervisor constructs the upper-half (VA >= 0x8000_0000) address space
// of a split TTBR0/TTBR1 pair.
func NewSupervisor(frames FrameAllocator) *AddressSpace {
	return New(frames, SupervisorStartEntry, FirstLevelSupervisorEntries-SupervisorStartEntry, true, nil)
}

// NewUser constructs the lower-half address space of a split TTBR0/TTBR1
// pair.
func NewUser(frames FrameAllocator) *AddressSpace {
	return New(frames, UserStartEntry, FirstLevelUserEntries, true, nil)
}

// NewIdentityOverlay constructs the boot loader's non-reference-counted
// identity mapping over the lower half: Map on this space never bumps a
// frame's refcount, so the overlay never keeps memory alive on its own.
func NewIdentityOverlay(frames FrameAllocator) *AddressSpace {
	return New(frames, UserStartEntry, FirstLevelUserEntries, false, nil)
}

// SetInterruptController wires this AddressSpace's spinlock to
// disable/enable interrupts around its critical section, mirroring
// pmm.Allocator.SetInterruptController. Called once from boot glue with the
// real arm.CPU; left unset on host builds.
func (a *AddressSpace) SetInterruptController(irq pmm.InterruptController) {
	a.lock = pmm.NewSpinlock(irq)
}

// ttbrAddrMask masks a first-level table's physical base the way
// TTBR0/TTBR1 require: a full first-level table is 16 KiB (4 frames), so
// only the top 18 bits matter.
const ttbrAddrMask = 0xFFFFC000

// TableBase is the physical address of this address space's first-level
// table, masked the way TTBR0/TTBR1 require. mm/paging reads this to
// program the MMU.
func (a *AddressSpace) TableBase() uint32 {
	return a.tablePhys & ttbrAddrMask
}

func (a *AddressSpace) firstLevelTable() []uint32 {
	return a.mem.Words(a.tablePhys, FirstLevelSupervisorEntries)
}

func (a *AddressSpace) secondLevelTable(phys uint32) []uint32 {
	return a.mem.Words(phys, SecondLevelEntries)
}

func (a *AddressSpace) inWindow(firstLevelIdx uint32) bool {
	return firstLevelIdx >= a.startEntry && firstLevelIdx < a.startEntry+a.numEntries
}

func firstLevelIndex(vaddr uint32) uint32 {
	return vaddr >> 20
}

func (a *AddressSpace) newSecondLevelTable() uint32 {
	phys := a.frames.Alloc(pmm.SizePage)

	words := a.secondLevelTable(phys)
	for i := range words {
		words[i] = uint32(freeDescriptor())
	}

	return phys
}

// Reserve claims units contiguous, naturally aligned blocks of granularity
// g anywhere in this address space's window and returns their base virtual
// address.
func (a *AddressSpace) Reserve(units uint32, g Granularity) (uint32, error) {
	guard := a.lock.Acquire()
	defer guard.Release()

	switch g {
	case Page:
		return a.reservePages(units)
	case Section:
		return a.reserveSections(units)
	case Supersection:
		return a.reserveSupersections(units)
	default:
		return 0, ErrOutOfBounds
	}
}

func (a *AddressSpace) reservePages(units uint32) (uint32, error) {
	table := a.firstLevelTable()

	for i := a.startEntry; i < a.startEntry+a.numEntries; i++ {
		d := descriptor(table[i])
		if !d.isTable() {
			continue
		}

		second := a.secondLevelTable(d.tableAddr())

		run := uint32(0)
		for j := 0; j < SecondLevelEntries; j++ {
			if descriptor(second[j]).isFree() {
				run++
			} else {
				run = 0
			}

			if run == units {
				start := uint32(j) - units + 1
				for k := start; k < start+units; k++ {
					second[k] = uint32(reservedDescriptor())
				}

				return i*SectionSize + start*PageSize, nil
			}
		}
	}

	for i := a.startEntry; i < a.startEntry+a.numEntries; i++ {
		if !descriptor(table[i]).isFree() {
			continue
		}

		second := a.newSecondLevelTable()
		table[i] = uint32(tableDescriptor(second))

		words := a.secondLevelTable(second)
		for j := uint32(0); j < units; j++ {
			words[j] = uint32(reservedDescriptor())
		}

		return i * SectionSize, nil
	}

	return 0, ErrMemorySpaceExhausted
}

func (a *AddressSpace) reserveSections(units uint32) (uint32, error) {
	table := a.firstLevelTable()

	run := uint32(0)
	for i := a.startEntry; i < a.startEntry+a.numEntries; i++ {
		if descriptor(table[i]).isFree() {
			run++
		} else {
			run = 0
		}

		if run == units {
			start := i - units + 1
			for k := start; k < start+units; k++ {
				table[k] = uint32(reservedDescriptor())
			}

			return start * SectionSize, nil
		}
	}

	return 0, ErrMemorySpaceExhausted
}

func (a *AddressSpace) reserveSupersections(units uint32) (uint32, error) {
	table := a.firstLevelTable()

	run := uint32(0)
	for i := a.startEntry; i+supersectionEntries <= a.startEntry+a.numEntries; i += supersectionEntries {
		allFree := true
		for j := uint32(0); j < supersectionEntries; j++ {
			if !descriptor(table[i+j]).isFree() {
				allFree = false
				break
			}
		}

		if allFree {
			run++
		} else {
			run = 0
		}

		if run == units {
			start := i - supersectionEntries*(units-1)
			for k := start; k < start+supersectionEntries*units; k++ {
				table[k] = uint32(reservedDescriptor())
			}

			return start * SectionSize, nil
		}
	}

	return 0, ErrMemorySpaceExhausted
}

// ReserveAt claims units contiguous blocks of granularity g starting at
// addr (floor-aligned to g's stride). Verification covers the entire range
// before any descriptor is written, so a failure never leaves a partial
// reservation behind.
func (a *AddressSpace) ReserveAt(addr uint32, units uint32, g Granularity) (uint32, error) {
	guard := a.lock.Acquire()
	defer guard.Release()

	switch g {
	case Page:
		return a.reservePagesAt(addr, units)
	case Section:
		return a.reserveSectionsAt(addr, units)
	case Supersection:
		return a.reserveSupersectionsAt(addr, units)
	default:
		return 0, ErrOutOfBounds
	}
}

func (a *AddressSpace) reservePagesAt(addr uint32, units uint32) (uint32, error) {
	base := Page.align(addr)

	if err := a.checkBounds(base, units, Page); err != nil {
		return 0, err
	}

	cursor := base
	remaining := units
	for remaining > 0 {
		sectionIdx := firstLevelIndex(cursor)
		pageIdx := (cursor % SectionSize) / PageSize
		n := remaining
		if left := uint32(SecondLevelEntries) - pageIdx; n > left {
			n = left
		}

		if !a.sectionPartiallyReservable(sectionIdx, pageIdx, n) {
			return 0, ErrSomeBlocksNotFree
		}

		remaining -= n
		cursor = (cursor/SectionSize + 1) * SectionSize
	}

	cursor = base
	remaining = units
	for remaining > 0 {
		sectionIdx := firstLevelIndex(cursor)
		pageIdx := (cursor % SectionSize) / PageSize
		n := remaining
		if left := uint32(SecondLevelEntries) - pageIdx; n > left {
			n = left
		}

		a.reservePagesInSection(sectionIdx, pageIdx, n)

		remaining -= n
		cursor = (cursor/SectionSize + 1) * SectionSize
	}

	return base, nil
}

func (a *AddressSpace) sectionPartiallyReservable(sectionIdx, pageIdx, n uint32) bool {
	if !a.inWindow(sectionIdx) {
		return false
	}

	table := a.firstLevelTable()
	d := descriptor(table[sectionIdx])

	if d.isFree() {
		return true
	}

	if !d.isTable() {
		return false
	}

	second := a.secondLevelTable(d.tableAddr())
	for i := uint32(0); i < n; i++ {
		if !descriptor(second[pageIdx+i]).isFree() {
			return false
		}
	}

	return true
}

func (a *AddressSpace) reservePagesInSection(sectionIdx, pageIdx, n uint32) {
	table := a.firstLevelTable()
	d := descriptor(table[sectionIdx])

	var second []uint32
	if d.isFree() {
		phys := a.newSecondLevelTable()
		table[sectionIdx] = uint32(tableDescriptor(phys))
		second = a.secondLevelTable(phys)
	} else {
		second = a.secondLevelTable(d.tableAddr())
	}

	for i := uint32(0); i < n; i++ {
		second[pageIdx+i] = uint32(reservedDescriptor())
	}
}

func (a *AddressSpace) reserveSectionsAt(addr uint32, units uint32) (uint32, error) {
	base := Section.align(addr)
	start := firstLevelIndex(base)

	if err := a.checkBounds(base, units, Section); err != nil {
		return 0, err
	}

	table := a.firstLevelTable()

	for i := start; i < start+units; i++ {
		if !descriptor(table[i]).isFree() {
			return 0, ErrSomeBlocksNotFree
		}
	}

	for i := start; i < start+units; i++ {
		table[i] = uint32(reservedDescriptor())
	}

	return base, nil
}

func (a *AddressSpace) reserveSupersectionsAt(addr uint32, units uint32) (uint32, error) {
	base := Supersection.align(addr)
	start := firstLevelIndex(base)
	n := units * supersectionEntries

	if err := a.checkBounds(base, units, Supersection); err != nil {
		return 0, err
	}

	table := a.firstLevelTable()

	for i := start; i < start+n; i++ {
		if !descriptor(table[i]).isFree() {
			return 0, ErrSomeBlocksNotFree
		}
	}

	for i := start; i < start+n; i++ {
		table[i] = uint32(reservedDescriptor())
	}

	return base, nil
}

func (a *AddressSpace) checkBounds(base uint32, units uint32, g Granularity) error {
	first := firstLevelIndex(base)

	var last uint32
	switch g {
	case Page:
		last = firstLevelIndex(base + (units-1)*PageSize)
	case Section:
		last = first + units - 1
	case Supersection:
		last = first + units*supersectionEntries - 1
	}

	if !a.inWindow(first) || !a.inWindow(last) {
		return ErrOutOfBounds
	}

	return nil
}

// Allocate commits fresh physical frames over a previously Reserved range.
// If the FrameAllocator panics with a kpanic.Fault carrying OutOfMemory
// partway through, every block this call already committed is decommitted
// before Allocate returns ErrOutOfMemory, so the caller observes atomic
// behaviour; any other panic propagates.
func (a *AddressSpace) Allocate(addr uint32, units uint32, g Granularity) (err error) {
	base := g.align(addr)

	guard := a.lock.Acquire()
	defer guard.Release()

	var done uint32
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		fault, ok := r.(kpanic.Fault)
		if !ok || fault.Code != kpanic.OutOfMemory {
			panic(r)
		}

		for i := uint32(0); i < done; i++ {
			a.decommitUnitLocked(base+i*g.Stride(), g)
		}
		err = ErrOutOfMemory
	}()

	for done = 0; done < units; done++ {
		vaddr := base + done*g.Stride()

		if !a.reservedLocked(vaddr, g) {
			for i := uint32(0); i < done; i++ {
				a.decommitUnitLocked(base+i*g.Stride(), g)
			}
			return ErrSomeBlocksNotReserved
		}

		phys := a.frames.Alloc(g.Frames())
		a.commitUnitLocked(vaddr, phys, g)
	}

	return nil
}

// Map commits externally-owned physical addresses (not fresh frames from
// this space's allocator) over a previously Reserved range. If this space
// is reference-counted, the mapped frames' refcounts are bumped once for
// the whole range.
func (a *AddressSpace) Map(vaddr, paddr uint32, units uint32, g Granularity) error {
	base := g.align(vaddr)
	pbase := g.align(paddr)

	guard := a.lock.Acquire()
	defer guard.Release()

	for i := uint32(0); i < units; i++ {
		if !a.reservedLocked(base+i*g.Stride(), g) {
			return ErrSomeBlocksNotReserved
		}
	}

	for i := uint32(0); i < units; i++ {
		a.commitUnitLocked(base+i*g.Stride(), pbase+i*g.Stride(), g)
	}

	if a.referenceCounted {
		a.frames.RefAcquireN(pbase, units*uint32(g.Frames()))
	}

	return nil
}

// ReserveAllocate reserves units blocks of granularity g anywhere in this
// space and commits fresh frames over them, rolling the reservation back if
// allocation fails.
func (a *AddressSpace) ReserveAllocate(units uint32, g Granularity) (uint32, error) {
	vaddr, err := a.Reserve(units, g)
	if err != nil {
		return 0, err
	}

	if err := a.Allocate(vaddr, units, g); err != nil {
		a.Release(vaddr, units, g)
		return 0, err
	}

	return vaddr, nil
}

// ReserveAllocateAt is ReserveAllocate at an explicit address.
func (a *AddressSpace) ReserveAllocateAt(addr uint32, units uint32, g Granularity) (uint32, error) {
	vaddr, err := a.ReserveAt(addr, units, g)
	if err != nil {
		return 0, err
	}

	if err := a.Allocate(vaddr, units, g); err != nil {
		a.Release(vaddr, units, g)
		return 0, err
	}

	return vaddr, nil
}

// Deallocate decommits a Committed range back to Reserved, releasing the
// backing frames' refcounts if this space is reference-counted.
func (a *AddressSpace) Deallocate(addr uint32, units uint32, g Granularity) error {
	base := g.align(addr)

	guard := a.lock.Acquire()
	defer guard.Release()

	for i := uint32(0); i < units; i++ {
		if _, ok := a.unitPhys(base+i*g.Stride(), g); !ok {
			return ErrSomeBlocksNotCommitted
		}
	}

	for i := uint32(0); i < units; i++ {
		a.decommitUnitLocked(base+i*g.Stride(), g)
	}

	return nil
}

func (a *AddressSpace) reservedLocked(vaddr uint32, g Granularity) bool {
	table := a.firstLevelTable()
	idx := firstLevelIndex(vaddr)

	if !a.inWindow(idx) {
		return false
	}

	switch g {
	case Page:
		d := descriptor(table[idx])
		if !d.isTable() {
			return false
		}
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (vaddr % SectionSize) / PageSize
		return descriptor(second[pageIdx]).isReserved()
	case Section:
		return descriptor(table[idx]).isReserved()
	case Supersection:
		for i := uint32(0); i < supersectionEntries; i++ {
			if !a.inWindow(idx+i) || !descriptor(table[idx+i]).isReserved() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (a *AddressSpace) commitUnitLocked(vaddr, phys uint32, g Granularity) {
	table := a.firstLevelTable()
	idx := firstLevelIndex(vaddr)

	switch g {
	case Page:
		d := descriptor(table[idx])
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (vaddr % SectionSize) / PageSize
		second[pageIdx] = uint32(committedPageDescriptor(phys))
	case Section:
		table[idx] = uint32(committedSectionDescriptor(phys, false))
	case Supersection:
		for i := uint32(0); i < supersectionEntries; i++ {
			table[idx+i] = uint32(committedSectionDescriptor(phys, true))
		}
	}
}

// unitPhys returns the physical address backing a Committed unit at vaddr,
// or false if it isn't currently committed.
func (a *AddressSpace) unitPhys(vaddr uint32, g Granularity) (uint32, bool) {
	table := a.firstLevelTable()
	idx := firstLevelIndex(vaddr)

	if !a.inWindow(idx) {
		return 0, false
	}

	switch g {
	case Page:
		d := descriptor(table[idx])
		if !d.isTable() {
			return 0, false
		}
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (vaddr % SectionSize) / PageSize
		pd := descriptor(second[pageIdx])
		if !pd.isCommittedPage() {
			return 0, false
		}
		return pd.pageAddr(), true
	case Section, Supersection:
		d := descriptor(table[idx])
		if !d.isCommittedSection() {
			return 0, false
		}
		return d.sectionAddr(), true
	default:
		return 0, false
	}
}

func (a *AddressSpace) decommitUnitLocked(vaddr uint32, g Granularity) {
	phys, ok := a.unitPhys(vaddr, g)
	if !ok {
		return
	}

	if a.referenceCounted {
		a.frames.RefReleaseN(phys, uint32(g.Frames()))
	}

	table := a.firstLevelTable()
	idx := firstLevelIndex(vaddr)

	switch g {
	case Page:
		d := descriptor(table[idx])
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (vaddr % SectionSize) / PageSize
		second[pageIdx] = uint32(reservedDescriptor())
	case Section:
		table[idx] = uint32(reservedDescriptor())
	case Supersection:
		for i := uint32(0); i < supersectionEntries; i++ {
			table[idx+i] = uint32(reservedDescriptor())
		}
	}
}

// Release returns a Reserved range (pages), or a Reserved-or-Committed
// range (sections, which may hold Reserved pages under a second-level
// table that must all be Reserved — not Committed — before release), to
// Free. A section whose descriptor is a direct Committed mapping (no
// second-level table) must be Deallocate'd first: releasing it here fails
// with ErrSomeBlocksNotReserved.
func (a *AddressSpace) Release(addr uint32, units uint32, g Granularity) error {
	switch g {
	case Page:
		return a.releasePages(addr, units)
	case Section:
		return a.releaseSections(addr, units)
	case Supersection:
		return a.releaseSupersections(addr, units)
	default:
		return ErrOutOfBounds
	}
}

func (a *AddressSpace) releasePages(addr uint32, units uint32) error {
	base := Page.align(addr)

	guard := a.lock.Acquire()
	defer guard.Release()

	if err := a.checkBounds(base, units, Page); err != nil {
		return err
	}

	cursor := base
	remaining := units
	for remaining > 0 {
		idx := firstLevelIndex(cursor)
		table := a.firstLevelTable()
		d := descriptor(table[idx])
		if !d.isTable() {
			return ErrSomeBlocksNotReserved
		}

		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (cursor % SectionSize) / PageSize
		n := remaining
		if left := uint32(SecondLevelEntries) - pageIdx; n > left {
			n = left
		}

		for i := uint32(0); i < n; i++ {
			if !descriptor(second[pageIdx+i]).isReserved() {
				return ErrSomeBlocksNotReserved
			}
		}

		remaining -= n
		cursor = (cursor/SectionSize + 1) * SectionSize
	}

	cursor = base
	remaining = units
	for remaining > 0 {
		idx := firstLevelIndex(cursor)
		table := a.firstLevelTable()
		d := descriptor(table[idx])
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (cursor % SectionSize) / PageSize
		n := remaining
		if left := uint32(SecondLevelEntries) - pageIdx; n > left {
			n = left
		}

		for i := uint32(0); i < n; i++ {
			second[pageIdx+i] = uint32(freeDescriptor())
		}

		if secondLevelTableEmpty(second) {
			a.frames.RefRelease(d.tableAddr())
			table[idx] = uint32(freeDescriptor())
		}

		remaining -= n
		cursor = (cursor/SectionSize + 1) * SectionSize
	}

	return nil
}

func secondLevelTableEmpty(second []uint32) bool {
	for _, w := range second {
		if !descriptor(w).isFree() {
			return false
		}
	}
	return true
}

func (a *AddressSpace) releaseSections(addr uint32, units uint32) error {
	base := Section.align(addr)
	start := firstLevelIndex(base)

	guard := a.lock.Acquire()
	defer guard.Release()

	if err := a.checkBounds(base, units, Section); err != nil {
		return err
	}

	table := a.firstLevelTable()

	for i := start; i < start+units; i++ {
		d := descriptor(table[i])
		switch {
		case d.isReserved():
		case d.isTable():
			second := a.secondLevelTable(d.tableAddr())
			for _, w := range second {
				if descriptor(w).isCommittedPage() {
					return ErrSomeBlocksNotReserved
				}
			}
		default:
			return ErrSomeBlocksNotReserved
		}
	}

	for i := start; i < start+units; i++ {
		d := descriptor(table[i])
		if d.isTable() {
			a.frames.RefRelease(d.tableAddr())
		}
		table[i] = uint32(freeDescriptor())
	}

	return nil
}

func (a *AddressSpace) releaseSupersections(addr uint32, units uint32) error {
	base := Supersection.align(addr)
	start := firstLevelIndex(base)
	n := units * supersectionEntries

	guard := a.lock.Acquire()
	defer guard.Release()

	if err := a.checkBounds(base, units, Supersection); err != nil {
		return err
	}

	table := a.firstLevelTable()

	for i := start; i < start+n; i++ {
		if !descriptor(table[i]).isReserved() {
			return ErrSomeBlocksNotReserved
		}
	}

	for i := start; i < start+n; i++ {
		table[i] = uint32(freeDescriptor())
	}

	return nil
}

// BlockStateAt reports the observable state of the block of granularity g
// at addr.
func (a *AddressSpace) BlockStateAt(addr uint32, g Granularity) (BlockState, error) {
	guard := a.lock.Acquire()
	defer guard.Release()

	idx := firstLevelIndex(addr)
	if !a.inWindow(idx) {
		return 0, ErrOutOfBounds
	}

	table := a.firstLevelTable()
	d := descriptor(table[idx])

	switch g {
	case Page:
		if d.isCommittedSection() && d.isSupersection() {
			return 0, ErrNotMappedAsPage
		}
		if !d.isTable() {
			return d.state(), nil
		}
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (addr % SectionSize) / PageSize
		return descriptor(second[pageIdx]).state(), nil

	case Section:
		if d.isTable() {
			return 0, ErrNotMappedAsSection
		}
		return d.state(), nil

	case Supersection:
		base := Supersection.align(addr)
		start := firstLevelIndex(base)
		if !a.inWindow(start + supersectionEntries - 1) {
			return 0, ErrOutOfBounds
		}

		agg := multiBlockState{free: true, reserved: true, committed: true}
		for i := uint32(0); i < supersectionEntries; i++ {
			e := descriptor(table[start+i])
			if e.isTable() {
				return 0, ErrNotMappedAsSection
			}
			agg = agg.and(multiBlockStateOf(e.state()))
		}

		switch {
		case agg.free:
			return Free, nil
		case agg.reserved:
			return Reserved, nil
		case agg.committed:
			return Committed, nil
		default:
			return 0, ErrNotMappedAsSection
		}

	default:
		return 0, ErrOutOfBounds
	}
}

// VirtualToPhysical resolves a Committed virtual address to its backing
// physical address.
func (a *AddressSpace) VirtualToPhysical(vaddr uint32) (uint32, error) {
	guard := a.lock.Acquire()
	defer guard.Release()

	idx := firstLevelIndex(vaddr)
	if !a.inWindow(idx) {
		return 0, ErrOutOfBounds
	}

	table := a.firstLevelTable()
	d := descriptor(table[idx])

	switch {
	case d.isTable():
		second := a.secondLevelTable(d.tableAddr())
		pageIdx := (vaddr % SectionSize) / PageSize
		pd := descriptor(second[pageIdx])
		if !pd.isCommittedPage() {
			return 0, ErrAddressNotMapped
		}
		return pd.pageAddr() | (vaddr & (PageSize - 1)), nil

	case d.isCommittedSection() && d.isSupersection():
		return d.sectionAddr() | (vaddr & (SupersectionSize - 1)), nil

	case d.isCommittedSection():
		return d.sectionAddr() | (vaddr & (SectionSize - 1)), nil

	default:
		return 0, ErrAddressNotMapped
	}
}

// PhysicalToVirtual returns the first virtual address mapped to paddr. This
// is slow: it walks every first- and second-level entry in the space.
func (a *AddressSpace) PhysicalToVirtual(paddr uint32) (uint32, error) {
	guard := a.lock.Acquire()
	defer guard.Release()

	table := a.firstLevelTable()

	for i := a.startEntry; i < a.startEntry+a.numEntries; i++ {
		d := descriptor(table[i])

		switch {
		case d.isTable():
			second := a.secondLevelTable(d.tableAddr())
			for j := 0; j < SecondLevelEntries; j++ {
				pd := descriptor(second[j])
				if pd.isCommittedPage() && pd.pageAddr() == paddr&descPageAddrMask {
					return (i*SectionSize + uint32(j)*PageSize) | (paddr & (PageSize - 1)), nil
				}
			}

		case d.isCommittedSection() && d.isSupersection():
			if d.sectionAddr() == paddr&descSupersectionAddrMask {
				return (i * SectionSize) | (paddr & (SupersectionSize - 1)), nil
			}

		case d.isCommittedSection():
			if d.sectionAddr() == paddr&descSectionAddrMask {
				return (i * SectionSize) | (paddr & (SectionSize - 1)), nil
			}
		}
	}

	return 0, ErrAddressNotMapped
}

// Close tears the address space down: every committed section releases its
// 256 frame refcounts (if reference-counted), every second-level table
// releases one refcount per committed page and then its own backing frame,
// and finally the four frames of the first-level table are released.
func (a *AddressSpace) Close() {
	guard := a.lock.Acquire()

	table := a.firstLevelTable()

	for i := uint32(0); i < FirstLevelSupervisorEntries; {
		d := descriptor(table[i])

		switch {
		case d.isTable():
			second := a.secondLevelTable(d.tableAddr())
			if a.referenceCounted {
				for j := 0; j < SecondLevelEntries; j++ {
					pd := descriptor(second[j])
					if pd.isCommittedPage() {
						a.frames.RefRelease(pd.pageAddr())
					}
				}
			}
			a.frames.RefRelease(d.tableAddr())
			i++

		case d.isCommittedSection() && d.isSupersection():
			if a.referenceCounted {
				a.frames.RefReleaseN(d.sectionAddr(), uint32(pmm.SizeSupersection))
			}
			i += supersectionEntries

		case d.isCommittedSection():
			if a.referenceCounted {
				a.frames.RefReleaseN(d.sectionAddr(), uint32(pmm.SizeSection))
			}
			i++

		default:
			i++
		}
	}

	guard.Release()

	a.frames.RefReleaseN(a.tablePhys, uint32(pmm.SizeTable))
}
