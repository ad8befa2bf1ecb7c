// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package atag

import "testing"

type fakeWords []uint32

func (f fakeWords) Word(i uint32) uint32 { return f[i] }

func TestReadMemoryFindsTag(t *testing.T) {
	chain := fakeWords{
		5, tagCore, 0, 4096, 0, // atag_core: size 5, flags, pagesize, rootdev
		4, tagMem, 0x04000000, 0, // atag_mem: size 4, length, start
		2, tagNone,
	}

	mem, err := ReadMemory(chain)
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if mem.Start != 0 || mem.Size != 0x04000000 {
		t.Errorf("ReadMemory = %+v, want {Start:0 Size:0x4000000}", mem)
	}
}

func TestReadMemorySkipsUnknownTags(t *testing.T) {
	chain := fakeWords{
		3, 0x54410009, 0xdeadbeef, // an unrecognized tag, 3 words long
		4, tagMem, 0x1000, 0,
		2, tagNone,
	}

	if _, err := ReadMemory(chain); err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
}

func TestReadMemoryNoTagFails(t *testing.T) {
	chain := fakeWords{2, tagNone}

	if _, err := ReadMemory(chain); err != ErrNoMemoryTag {
		t.Errorf("ReadMemory = %v, want ErrNoMemoryTag", err)
	}
}

func TestReadMemoryNonZeroBaseFails(t *testing.T) {
	chain := fakeWords{
		4, tagMem, 0x1000, 0x8000,
		2, tagNone,
	}

	if _, err := ReadMemory(chain); err != ErrNonZeroBase {
		t.Errorf("ReadMemory = %v, want ErrNonZeroBase", err)
	}
}

func TestCrossCheckAgrees(t *testing.T) {
	mem := Memory{Start: 0, Size: 0x1c000000}

	if err := CrossCheck(mem, 0, 0x1c000000); err != nil {
		t.Errorf("CrossCheck = %v, want nil", err)
	}
}

func TestCrossCheckNoVideoCoreDataIsNotAMismatch(t *testing.T) {
	mem := Memory{Start: 0, Size: 0x1c000000}

	if err := CrossCheck(mem, 0, 0); err != nil {
		t.Errorf("CrossCheck = %v, want nil for vcStart=vcSize=0", err)
	}
}

func TestCrossCheckDisagreesOnSize(t *testing.T) {
	mem := Memory{Start: 0, Size: 0x1c000000}

	if err := CrossCheck(mem, 0, 0x10000000); err != ErrMemorySplitMismatch {
		t.Errorf("CrossCheck = %v, want ErrMemorySplitMismatch", err)
	}
}
