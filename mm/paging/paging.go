// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

// Package paging is the only consumer of mm/vmm that touches real hardware:
// it loads the translation table base registers, the domain access control
// register, and the MMU enable bit. Everything it programs comes from an
// already-built *vmm.AddressSpace, so the register-level sequencing below
// has nothing left to decide except which bits to set.
package paging

import (
	"github.com/armboot/kernel/arm"
	"github.com/armboot/kernel/mm/vmm"
)

// domain access control: all 16 domains set to "manager" (0b11), meaning
// access permission bits in every descriptor are ignored rather than
// enforced. The table layer encodes Free/Reserved/Committed state in bits
// the MMU would otherwise interpret as access permissions, so enforcing
// them would misbehave.
const dacrManagerAll = 0xFFFFFFFF

// TTBCR bits: N=1 gives TTBR0 a 2 GiB reach (the user half) and TTBR1 the
// remaining 2 GiB (the supervisor half); PD0/PD1 disable table walks
// through TTBR0/TTBR1 respectively when that half isn't in use.
const (
	ttbcrSplit2GB = arm.TTBCR_N_2GB
	ttbcrPD0      = 0x10
	ttbcrPD1      = 0x20
)

// Controller programs the MMU from a pair of AddressSpaces. It holds no
// state of its own beyond the CPU handle: every method composes directly
// from its arguments, so call order is the only thing that matters.
type Controller struct {
	cpu *arm.CPU
}

// NewController binds a Controller to the CPU whose registers it will
// program. cpu.Init must already have run.
func NewController(cpu *arm.CPU) *Controller {
	return &Controller{cpu: cpu}
}

// SetLower loads TTBR0 with the user address space's first-level table.
func (c *Controller) SetLower(lower *vmm.AddressSpace) {
	c.cpu.SetTTBR0(lower.TableBase())
}

// SetUpper loads TTBR1 with the supervisor address space's first-level
// table.
func (c *Controller) SetUpper(upper *vmm.AddressSpace) {
	c.cpu.SetTTBR1(upper.TableBase())
}

// SetMode programs the TTBR0/TTBR1 split and domain access control.
// lowerEnable/upperEnable control whether TTBR0 (user)/TTBR1 (supervisor)
// table walks are active; a half not in use for this boot (the identity
// overlay never needs its own TTBR1 walk, for instance) has its PD bit set
// instead. Call once after SetLower/SetUpper and before Enable.
func (c *Controller) SetMode(lowerEnable, upperEnable bool) {
	control := uint32(ttbcrSplit2GB)
	if !lowerEnable {
		control |= ttbcrPD0
	}
	if !upperEnable {
		control |= ttbcrPD1
	}

	c.cpu.SetTranslationControl(control)
	c.cpu.SetDomainAccessControl(dacrManagerAll)
}

// Enable turns the MMU on: caches are dropped first since a cache line
// holding a stale translation must never survive past the table walk that
// replaces it, and the instruction cache and TLB are invalidated so no
// prior flat mapping lingers before the new tables take over. Caches are
// left disabled on return, matching upstream: re-enabling them is the
// caller's decision once it has confirmed the new mapping behaves as
// expected.
func (c *Controller) Enable() {
	c.cpu.CacheDisable()
	c.cpu.CacheFlushInstruction()
	c.cpu.InvalidateTLB()
	c.cpu.EnableMMU()
}
