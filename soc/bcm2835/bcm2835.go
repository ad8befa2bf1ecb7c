// Package bcm2835 provides support for the BCM2835/BCM2836/BCM2837 SoC
// family used across the Raspberry Pi 1/2/Zero boards.
//
// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package bcm2835

import (
	// using go:linkname
	_ "unsafe"

	"github.com/armboot/kernel/arm"
)

// PeripheralBase is the (remapped) peripheral base address.
//
// In Raspberry Pi, the VideoCore chip is responsible for bootstrapping. In
// Pi2+, it remaps registers from their hardware 'bus' address to the
// 0x3f000000 'physical' address. In Pi Zero, registers start at 0x20000000.
//
// This varies by model, hence variable so it can be overridden at runtime.
//
//go:linkname PeripheralBase runtime.PeripheralBase
var PeripheralBase uint32

// ARM is the processor instance backing this SoC.
var ARM = &arm.CPU{}

// DRAM_FLAG_NOCACHE marks a bus address as bypassing the VideoCore L2
// cache, required for memory shared between the ARM core and firmware
// (e.g. mailbox property buffers).
const DRAM_FLAG_NOCACHE = 0x40000000

// PeripheralAddress returns the CPU-side address of a peripheral register,
// given its offset within the peripheral address space.
func PeripheralAddress(offset uint32) uint32 {
	return PeripheralBase + offset
}

//go:linkname nanotime1 runtime.nanotime1
func nanotime1() int64 {
	return ARM.Nanotime()
}

// HardwareInit takes care of the lower level SoC initialization.
//
// Triggered early in runtime setup, care must be taken to ensure that no
// heap allocation is performed (e.g. defer is not possible).
func HardwareInit(peripheralBase uint32) {
	// The peripheral base address differs by board.
	PeripheralBase = peripheralBase

	ARM.Init()
	ARM.EnableVFP()

	// required when booting in SMP mode
	ARM.EnableSMP()

	ARM.CacheEnable()

	ARM.InitSpecificTimer(read_systimer, SysTimerFreq)

	uartInit()
}
