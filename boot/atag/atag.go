// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package atag reads the ATAG chain the Raspberry Pi boot loader leaves in
// memory at the address it passes in r2, the only way the kernel learns how
// much RAM it has before anything else (mm/pmm, mm/vmm) can be built.
package atag

import "errors"

// Tag values, Linux ABI.
const (
	tagNone = 0x00000000
	tagCore = 0x54410001
	tagMem  = 0x54410002
)

var (
	// ErrNoMemoryTag is returned when the chain reaches its terminating
	// ATAG_NONE without ever presenting an ATAG_MEM tag.
	ErrNoMemoryTag = errors.New("atag: chain has no memory tag")
	// ErrNonZeroBase is returned when the memory tag's start address is
	// not zero. This boot path only supports RAM starting at physical
	// address zero.
	ErrNonZeroBase = errors.New("atag: memory tag has a non-zero base")
	// ErrMemorySplitMismatch is returned by CrossCheck when the
	// VideoCore-reported ARM memory split disagrees with the ATAG chain.
	ErrMemorySplitMismatch = errors.New("atag: VideoCore memory split disagrees with ATAG_MEM")
)

// Memory is the physical RAM extent reported by ATAG_MEM.
type Memory struct {
	Start uint32
	Size  uint32
}

// Words reads the tag chain a word at a time. Production code reads real
// memory at the boot loader's handoff address; tests back it with a plain
// Go slice.
type Words interface {
	Word(i uint32) uint32
}

// ReadMemory walks the ATAG chain and returns the first ATAG_MEM tag's
// extent. Every other tag type (ATAG_CORE, ATAG_CMDLINE, ...) is
// recognized only long enough to skip over it by its declared word count;
// none but ATAG_MEM is interpreted, the same minimal treatment the boot
// loader itself gives them.
func ReadMemory(words Words) (Memory, error) {
	for i := uint32(0); ; {
		size := words.Word(i)
		tag := words.Word(i + 1)

		if tag == tagNone {
			return Memory{}, ErrNoMemoryTag
		}

		if tag == tagMem {
			length := words.Word(i + 2)
			start := words.Word(i + 3)
			if start != 0 {
				return Memory{}, ErrNonZeroBase
			}
			return Memory{Start: start, Size: length}, nil
		}

		if size == 0 {
			return Memory{}, ErrNoMemoryTag
		}
		i += size
	}
}

// CrossCheck compares mem, as read by ReadMemory, against the ARM/VideoCore
// memory split the board's VideoCore GPU itself reports (bcm2835.CPUMemory,
// on real hardware). The two come from independent sources, a boot-loader
// supplied ATAG chain and a live mailbox round trip to the GPU, so agreement
// is a cheap sanity check that the boot loader didn't hand the kernel a
// stale or malformed chain. vcStart/vcSize of 0/0 (a mailbox call that
// returned nothing usable) is treated as "no data to check against" rather
// than a mismatch.
func CrossCheck(mem Memory, vcStart, vcSize uint32) error {
	if vcStart == 0 && vcSize == 0 {
		return nil
	}
	if vcStart != mem.Start || vcSize != mem.Size {
		return ErrMemorySplitMismatch
	}
	return nil
}
