// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"container/list"
)

// Init initializes the global DMA region used by the package-level
// convenience functions (Reserve, Alloc, Read, Write, Free, Release). It must
// be called before any of them, typically once the frame allocator has
// carved out a DMA-capable physical range for the board.
func Init(start uint, size int) {
	dma = &Region{
		start: start,
		size:  uint(size),

		freeBlocks: list.New(),
		usedBlocks: make(map[uint]*block),
	}

	dma.freeBlocks.PushBack(&block{
		addr: start,
		size: uint(size),
	})
}

// Reserve allocates a slice of bytes for DMA purposes on the default region,
// see Region.Reserve.
func Reserve(size int, align int) (addr uint, buf []byte) {
	return dma.Reserve(size, align)
}

// Reserved returns whether buf lies within the default DMA region, see
// Region.Reserved.
func Reserved(buf []byte) (res bool, addr uint) {
	return dma.Reserved(buf)
}

// Alloc reserves a memory region on the default DMA region, see Region.Alloc.
func Alloc(buf []byte, align int) (addr uint) {
	return dma.Alloc(buf, align)
}

// Read reads from an address on the default DMA region, see Region.Read.
func Read(addr uint, off int, buf []byte) {
	dma.Read(addr, off, buf)
}

// Write writes to an address on the default DMA region, see Region.Write.
func Write(addr uint, off int, buf []byte) {
	dma.Write(addr, off, buf)
}

// Free releases an Alloc'd region on the default DMA region, see Region.Free.
func Free(addr uint) {
	dma.Free(addr)
}

// Release releases a Reserve'd region on the default DMA region, see
// Region.Release.
func Release(addr uint) {
	dma.Release(addr)
}
