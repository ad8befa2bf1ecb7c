// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package elf loads an ELF image's PT_LOAD segments into a fresh
// AddressSpace, the boot loader's last step before jumping into the kernel
// proper.
package elf

import (
	"debug/elf"
	"errors"
	"io"

	"github.com/armboot/kernel/mm/vmm"
)

// ErrUnalignedSegment is returned when a PT_LOAD segment's virtual address
// is not page-aligned, the one condition the original loader already
// rejected outright.
var ErrUnalignedSegment = errors.New("elf: PT_LOAD segment is not page-aligned")

const pageSize = vmm.PageSize

// Memory writes bytes at a physical address. Production code backs this
// with a direct dereference of physical RAM (identity-mapped during boot);
// tests back it with an ordinary Go slice.
type Memory interface {
	Bytes(phys uint32, n int) []byte
}

// AddressSpace is the subset of *vmm.AddressSpace that loading an image
// needs.
type AddressSpace interface {
	ReserveAllocateAt(addr uint32, units uint32, g vmm.Granularity) (uint32, error)
	VirtualToPhysical(vaddr uint32) (uint32, error)
}

// Load reserves and commits every PT_LOAD segment of the ELF image read
// from r into space, copies each segment's file contents, zero-fills the
// memsz-filesz BSS tail, and returns the image's entry point.
func Load(r io.ReaderAt, space AddressSpace, mem Memory) (entry uint32, err error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return 0, err
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		vaddr := uint32(prog.Vaddr)
		if vaddr%pageSize != 0 {
			return 0, ErrUnalignedSegment
		}

		units := (uint32(prog.Memsz) + pageSize - 1) / pageSize
		if _, err := space.ReserveAllocateAt(vaddr, units, vmm.Page); err != nil {
			return 0, err
		}

		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil && err != io.EOF {
			return 0, err
		}

		if err := copySegment(vaddr, data, uint32(prog.Memsz), space, mem); err != nil {
			return 0, err
		}
	}

	return uint32(f.Entry), nil
}

// copySegment writes data (the segment's on-disk bytes) over [vaddr,
// vaddr+memsz), zero-filling past len(data) for the BSS tail. It walks one
// page at a time, resolving each page's physical address independently
// rather than assuming an identity mapping, so the same loader works
// whether or not paging is already live.
func copySegment(vaddr uint32, data []byte, memsz uint32, space AddressSpace, mem Memory) error {
	for off := uint32(0); off < memsz; off += pageSize {
		phys, err := space.VirtualToPhysical(vaddr + off)
		if err != nil {
			return err
		}

		dst := mem.Bytes(phys, pageSize)
		for i := uint32(0); i < pageSize; i++ {
			srcOff := off + i
			if srcOff < uint32(len(data)) {
				dst[i] = data[srcOff]
			} else {
				dst[i] = 0
			}
		}
	}

	return nil
}
