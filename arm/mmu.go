// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package arm

import (
	"runtime"

	"github.com/armboot/kernel/internal/reg"
)

const (
	l1pageTableOffset = 0x4000 // 16 kB
	l1pageTableSize   = 0x4000 // 16 kB
)

// Memory region attributes
// Table B3-10 ARM Architecture Reference Manual ARMv7-A and ARMv7-R edition
const (
	TTE_SECTION_1MB   uint32 = 0x2
	TTE_SECTION_16MB  uint32 = 0x40002
	TTE_EXECUTE_NEVER uint32 = 0x10
	TTE_CACHEABLE     uint32 = 0x8
	TTE_BUFFERABLE    uint32 = 0x4
)

// MMU access permissions
// Table B3-8 ARM Architecture Reference Manual ARMv7-A and ARMv7-R edition
const (
	// PL1: no access   PL0: no access
	TTE_AP_000 uint32 = 0b000000 << 10
	// PL1: read/write  PL0: no access
	TTE_AP_001 uint32 = 0b000001 << 10
	// PL1: read/write  PL0: read only
	TTE_AP_010 uint32 = 0b000010 << 10
	// PL1: read/write  PL0: read/write
	TTE_AP_011 uint32 = 0b000011 << 10
	// Reserved
	TTE_AP_100 uint32 = 0b100000 << 10
	// PL1: read only   PL0: no access
	TTE_AP_101 uint32 = 0b100001 << 10
	// PL1: read only   PL0: read only
	TTE_AP_110 uint32 = 0b100010 << 10
	// PL1: read only   PL0: read only
	TTE_AP_111 uint32 = 0b100011 << 10
)

// TTBCR.N field values: number of bits of the input address that select
// between TTBR0 and TTBR1 (N=0 disables the split, TTBR0 covers 4GB).
// Table B3-39 ARM Architecture Reference Manual ARMv7-A and ARMv7-R edition
const TTBCR_N_2GB uint32 = 0x1

// defined in mmu.s
func set_ttbr0(addr uint32)
func set_ttbr1(addr uint32)
func set_ttbcr(n uint32)
func set_dacr(dacr uint32)
func invalidate_tlb()
func enable_mmu()

// SetTTBR0 loads the Translation Table Base Register 0, used for the lower
// (process/user) half of the address space split.
func (cpu *CPU) SetTTBR0(addr uint32) {
	set_ttbr0(addr)
}

// SetTTBR1 loads the Translation Table Base Register 1, used for the upper
// (kernel) half of the address space split.
func (cpu *CPU) SetTTBR1(addr uint32) {
	set_ttbr1(addr)
}

// SetTranslationControl programs the TTBCR.N field that determines where the
// TTBR0/TTBR1 split falls in the input address space.
func (cpu *CPU) SetTranslationControl(n uint32) {
	set_ttbcr(n)
}

// SetDomainAccessControl loads the Domain Access Control Register, which
// gates whether the access permission bits of each first-level descriptor
// are honored (client), ignored (manager) or always faulted (no access).
func (cpu *CPU) SetDomainAccessControl(dacr uint32) {
	set_dacr(dacr)
}

// InvalidateTLB flushes all unified TLB entries, required after any
// modification of live translation table entries.
func (cpu *CPU) InvalidateTLB() {
	invalidate_tlb()
}

// EnableMMU sets SCTLR's M (MMU enable) and XP (extended, subpage-AP-disabled
// page table format) bits. The translation table base and domain access
// control registers must already be programmed.
func (cpu *CPU) EnableMMU() {
	enable_mmu()
}

// ConfigureMMU (re)configures the first-level translation tables for the
// provided memory range with the passed attribute flags.
func (cpu *CPU) ConfigureMMU(start uint32, end uint32, flags uint32) {
	ramStart, _ := runtime.MemRegion()
	l1pageTableStart := ramStart + l1pageTableOffset

	start = start >> 20
	end = end >> 20

	for i := uint32(1); i < l1pageTableSize/4; i++ {
		page := l1pageTableStart + 4*i
		pa := i << 20

		if i < start {
			continue
		}

		if i >= end {
			break
		}

		reg.Write(page, pa|flags)
	}

	set_ttbr0(l1pageTableStart)
}

// InitMMU initializes the first-level translation tables for all available
// memory with a flat mapping and privileged attribute flags.
func (cpu *CPU) InitMMU() {
	start, end := runtime.MemRegion()
	l1pageTableStart := start + l1pageTableOffset

	memAttr := uint32(TTE_AP_001 | TTE_CACHEABLE | TTE_BUFFERABLE | TTE_SECTION_1MB)
	devAttr := uint32(TTE_AP_001 | TTE_SECTION_1MB)

	start = start >> 20
	end = end >> 20

	// skip page zero to trap null pointers
	reg.Write(l1pageTableStart, 0)

	for i := uint32(1); i < l1pageTableSize/4; i++ {
		page := l1pageTableStart + 4*i
		pa := i << 20

		if i >= start && i < end {
			reg.Write(page, pa|memAttr)
		} else {
			reg.Write(page, pa|devAttr)
		}
	}

	set_ttbr0(l1pageTableStart)
}
