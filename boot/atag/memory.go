// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package atag

import "unsafe"

// physWords dereferences the ATAG chain directly out of physical memory,
// identity-mapped at boot before paging is enabled.
type physWords struct {
	base uint32
}

func (w physWords) Word(i uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(w.base + i*4)))
}

// ReadAt reads the ATAG chain handed off by the boot loader at the
// physical address base (the r2 argument to cmd/kernel.Entry).
func ReadAt(base uint32) (Memory, error) {
	return ReadMemory(physWords{base: base})
}
