// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vmm

import "unsafe"

// Memory reads and writes the raw words of a translation table at a
// physical address. Production code never needs to touch this: an
// AddressSpace defaults to physMemory, which treats a physical address as
// directly dereferenceable, because every table an AddressSpace manages
// lives in RAM that is identity-mapped until paging is enabled (and, for
// the boot loader's identity overlay, forever after). Tests substitute a
// fake backed by an ordinary Go slice, so the reservation/commit algorithms
// run host-side with no real memory behind the addresses pmm.Allocator
// hands out.
type Memory interface {
	// Words returns the n uint32 table entries starting at the physical
	// address phys. Mutations through the returned slice must be visible
	// to later calls at the same address.
	Words(phys uint32, n int) []uint32
}

type physMemory struct{}

func (physMemory) Words(phys uint32, n int) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(uintptr(phys))), n)
}
