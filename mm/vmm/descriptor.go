// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vmm

// descriptor is one 32-bit entry in a first-level or second-level
// translation table. The low bits carry one of four encodings:
//
//	00, reservation bit (2) clear -> Free
//	00, reservation bit (2) set   -> Reserved
//	01 (first-level only)         -> pointer to a second-level table
//	10 (first-level) / 1x (second-level) -> Committed
//
// The reservation bit is otherwise unused by the MMU whenever the low two
// bits are 00, so stashing it there costs nothing in hardware.
type descriptor uint32

const (
	descKindMask      = 0x3
	descKindTable     = 0x1
	descKindCommitted = 0x2

	descReservedBit     = 1 << 2
	descSupersectionBit = 1 << 18

	descTableAddrMask        = 0xFFFFFC00
	descPageAddrMask         = 0xFFFFF000
	descSectionAddrMask      = 0xFFF00000
	descSupersectionAddrMask = 0xFF000000
)

func freeDescriptor() descriptor { return 0 }

func reservedDescriptor() descriptor { return descReservedBit }

func tableDescriptor(secondLevelPhys uint32) descriptor {
	return descriptor(secondLevelPhys&descTableAddrMask) | descKindTable
}

func committedSectionDescriptor(phys uint32, super bool) descriptor {
	d := descriptor(phys&descSectionAddrMask) | descKindCommitted
	if super {
		d = descriptor(phys&descSupersectionAddrMask) | descKindCommitted | descSupersectionBit
	}
	return d
}

func committedPageDescriptor(phys uint32) descriptor {
	return descriptor(phys&descPageAddrMask) | descKindCommitted
}

func (d descriptor) isFree() bool {
	return d&(descKindMask|descReservedBit) == 0
}

func (d descriptor) isReserved() bool {
	return d&descKindMask == 0 && d&descReservedBit != 0
}

func (d descriptor) isTable() bool {
	return d&descKindMask == descKindTable
}

// isCommittedSection reports whether a first-level descriptor is a
// committed section or supersection. Only meaningful for first-level
// entries; second-level entries never carry this encoding.
func (d descriptor) isCommittedSection() bool {
	return d&descKindMask == descKindCommitted
}

// isCommittedPage reports whether a second-level descriptor is committed.
func (d descriptor) isCommittedPage() bool {
	return d&descKindCommitted != 0
}

func (d descriptor) isSupersection() bool {
	return d&descSupersectionBit != 0
}

func (d descriptor) tableAddr() uint32 {
	return uint32(d) & descTableAddrMask
}

func (d descriptor) sectionAddr() uint32 {
	if d.isSupersection() {
		return uint32(d) & descSupersectionAddrMask
	}
	return uint32(d) & descSectionAddrMask
}

func (d descriptor) pageAddr() uint32 {
	return uint32(d) & descPageAddrMask
}

// state reports the observable BlockState of a descriptor, regardless of
// whether it is a first- or second-level entry (table pointers never reach
// this; callers resolve them to their constituent entries first).
func (d descriptor) state() BlockState {
	switch {
	case d.isReserved():
		return Reserved
	case d.isCommittedSection(), d.isCommittedPage():
		return Committed
	default:
		return Free
	}
}
