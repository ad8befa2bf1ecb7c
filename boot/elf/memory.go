// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package elf

import "unsafe"

type physMemory struct{}

func (physMemory) Bytes(phys uint32, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(phys))), n)
}

// NewPhysMemory returns the production Memory, a direct dereference of
// physical RAM.
func NewPhysMemory() Memory {
	return physMemory{}
}
