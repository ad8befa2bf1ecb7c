// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package elf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/armboot/kernel/mm/pmm"
	"github.com/armboot/kernel/mm/vmm"
)

// fakeWords is a Go slice standing in for the page table's backing memory.
type fakeWords struct {
	ram []uint32
}

func (m *fakeWords) Words(phys uint32, n int) []uint32 {
	start := phys / 4
	return m.ram[start : start+uint32(n)]
}

// fakeBytes is a Go slice standing in for the loaded image's destination
// physical memory.
type fakeBytes struct {
	ram []byte
}

func (m *fakeBytes) Bytes(phys uint32, n int) []byte {
	return m.ram[phys : phys+uint32(n)]
}

// buildELF assembles a minimal 32-bit little-endian ARM ELF with one
// PT_LOAD segment: vaddr, filesz bytes of data, and a memsz tail to be
// zero-filled as BSS.
func buildELF(vaddr uint32, data []byte, memsz uint32, entry uint32) []byte {
	const ehsize = 52
	const phentsize = 32

	var buf bytes.Buffer

	ident := [16]byte{0x7f, 'E', 'L', 'F', 1, 1, 1, 0}
	buf.Write(ident[:])
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // e_type: ET_EXEC
	binary.Write(&buf, binary.LittleEndian, uint16(40)) // e_machine: EM_ARM
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // e_version
	binary.Write(&buf, binary.LittleEndian, entry)      // e_entry
	binary.Write(&buf, binary.LittleEndian, uint32(ehsize)) // e_phoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_shoff
	binary.Write(&buf, binary.LittleEndian, uint32(0))  // e_flags
	binary.Write(&buf, binary.LittleEndian, uint16(ehsize))
	binary.Write(&buf, binary.LittleEndian, uint16(phentsize))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // e_phnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shentsize
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shnum
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // e_shstrndx

	dataOff := uint32(ehsize + phentsize)
	binary.Write(&buf, binary.LittleEndian, uint32(1))          // p_type: PT_LOAD
	binary.Write(&buf, binary.LittleEndian, dataOff)             // p_offset
	binary.Write(&buf, binary.LittleEndian, vaddr)               // p_vaddr
	binary.Write(&buf, binary.LittleEndian, vaddr)               // p_paddr
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))   // p_filesz
	binary.Write(&buf, binary.LittleEndian, memsz)               // p_memsz
	binary.Write(&buf, binary.LittleEndian, uint32(7))           // p_flags: RWX
	binary.Write(&buf, binary.LittleEndian, uint32(vmm.PageSize)) // p_align

	buf.Write(data)

	return buf.Bytes()
}

func TestLoadCopiesSegmentAndZeroFillsBSS(t *testing.T) {
	const numFrames = 64
	frames := pmm.NewAllocator(numFrames*pmm.FrameSize, 0)
	words := &fakeWords{ram: make([]uint32, numFrames*pmm.FrameSize/4)}
	bytesMem := &fakeBytes{ram: make([]byte, numFrames*pmm.FrameSize)}

	space := vmm.New(frames, vmm.UserStartEntry, vmm.FirstLevelUserEntries, true, words)

	vaddr := uint32(0x10000)
	data := []byte("hello kernel")
	memsz := uint32(vmm.PageSize) // one page, rest of the page is BSS

	image := buildELF(vaddr, data, memsz, vaddr+4)

	entry, err := Load(bytes.NewReader(image), space, bytesMem)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry != vaddr+4 {
		t.Errorf("entry = %#x, want %#x", entry, vaddr+4)
	}

	phys, err := space.VirtualToPhysical(vaddr)
	if err != nil {
		t.Fatalf("VirtualToPhysical: %v", err)
	}

	got := bytesMem.ram[phys : phys+uint32(len(data))]
	if !bytes.Equal(got, data) {
		t.Errorf("copied bytes = %q, want %q", got, data)
	}

	tail := bytesMem.ram[phys+uint32(len(data)) : phys+memsz]
	for i, b := range tail {
		if b != 0 {
			t.Fatalf("BSS tail byte %d = %#x, want 0", i, b)
		}
	}
}

func TestLoadRejectsUnalignedSegment(t *testing.T) {
	const numFrames = 64
	frames := pmm.NewAllocator(numFrames*pmm.FrameSize, 0)
	words := &fakeWords{ram: make([]uint32, numFrames*pmm.FrameSize/4)}
	bytesMem := &fakeBytes{ram: make([]byte, numFrames*pmm.FrameSize)}

	space := vmm.New(frames, vmm.UserStartEntry, vmm.FirstLevelUserEntries, true, words)

	image := buildELF(0x1001, []byte("x"), vmm.PageSize, 0x1001)

	if _, err := Load(bytes.NewReader(image), space, bytesMem); err != ErrUnalignedSegment {
		t.Errorf("Load = %v, want ErrUnalignedSegment", err)
	}
}
