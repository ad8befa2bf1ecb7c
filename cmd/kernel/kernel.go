// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

// Command kernel is the boot entry point: it wires hardware discovery,
// the frame and address-space allocators, paging, and the embedded kernel
// image loader together, then jumps into the loaded image. Everything it
// calls is algorithm live elsewhere; this file is sequencing only.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/armboot/kernel/arm"
	boardpi "github.com/armboot/kernel/board/raspberrypi"
	kpanic "github.com/armboot/kernel/internal/panic"
	"github.com/armboot/kernel/kernel/hash"
	"github.com/armboot/kernel/mm/paging"
	"github.com/armboot/kernel/mm/pmm"
	"github.com/armboot/kernel/mm/vmm"
	"github.com/armboot/kernel/soc/bcm2835"

	// Importing a board variant links in its runtime.hwinit and
	// runtime.ramSize hooks and picks its GPIO map for raspberrypi.Board.
	// A different target model swaps this one import.
	"github.com/armboot/kernel/board/raspberrypi/pi2"

	bootatag "github.com/armboot/kernel/boot/atag"
	bootelf "github.com/armboot/kernel/boot/elf"
)

// watchdogTimeout bounds how long the loaded image has to pet the watchdog
// itself before a hang here gets rectified by a board reset.
const watchdogTimeout = 10 * time.Second

// image is the kernel payload this boot loader loads and jumps to. A real
// build populates this from a linker-embedded section carrying the actual
// payload bytes; no concrete payload ships with this repo.
var image []byte

// expectedImageDigest is image's known-good SHA-256, checked before the
// loader trusts image enough to parse and jump to it. A real build
// populates this from the same linker-embedded section as image.
var expectedImageDigest hash.Digest

// defined in jump_arm.s
func jump(entry uint32)

var cpu arm.CPU

func uartSink(msg string) {
	bcm2835.MiniUART.Write([]byte(msg))
}

// activityBlink tracks the on/off phase of the activity LED across Idle
// calls so a parked core stays visibly blinking rather than solid.
var activityBlink bool

func uartIdle() {
	activityBlink = !activityBlink
	pi2.Board.LED("activity", activityBlink)
	cpu.WaitForEvent()
}

// Entry is the single external control surface: r0 and savedCPSR are the
// boot loader's handoff registers, r1 is the machine type ID, and
// atagPtr is the physical address of the ATAG chain.
func Entry(r0, r1, atagPtr, savedCPSR uint32) {
	cpu.Init()
	bcm2835.MiniUART.Init()
	pi2.Board.LED("power", true)

	kpanic.SetSink(uartSink)
	kpanic.SetIdle(uartIdle)

	// A kpanic.Fault (or any other panic) nothing below recovered ends here
	// as a Halt, so it is reported on the UART rather than lost.
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(kpanic.Fault); ok {
				kpanic.Halt(f.Code, f.Msg)
			}
			kpanic.Halt(kpanic.AssertionFailure, fmt.Sprint(r))
		}
	}()

	mem, err := bootatag.ReadAt(atagPtr)
	if err != nil {
		code := kpanic.AssertionFailure
		switch {
		case errors.Is(err, bootatag.ErrNonZeroBase):
			code = kpanic.NonZeroBase
		case errors.Is(err, bootatag.ErrNoMemoryTag):
			code = kpanic.NoMemoryTag
		}
		kpanic.Halt(code, fmt.Sprintf("atag: %v", err))
	}

	vcStart, vcSize := bcm2835.CPUMemory()
	if err := bootatag.CrossCheck(mem, vcStart, vcSize); err != nil {
		kpanic.Halt(kpanic.AssertionFailure, fmt.Sprintf("atag: %v", err))
	}

	const refcountTableBase = 0

	frames := pmm.NewAllocator(mem.Size, refcountTableBase)
	frames.SetInterruptController(&cpu)

	// Fill every freshly allocated run with 0xCC so reads of frames nobody
	// initialised stand out.
	ram := bootelf.NewPhysMemory()
	frames.SetScribble(func(phys, size uint32) {
		buf := ram.Bytes(phys, int(size))
		for i := range buf {
			buf[i] = 0xCC
		}
	})

	supervisor := vmm.NewSupervisor(frames)
	user := vmm.NewUser(frames)
	overlay := vmm.NewIdentityOverlay(frames)
	supervisor.SetInterruptController(&cpu)
	user.SetInterruptController(&cpu)
	overlay.SetInterruptController(&cpu)

	if sum := hash.Sum256(image); sum != expectedImageDigest {
		kpanic.Halt(kpanic.AssertionFailure, fmt.Sprintf("image: digest mismatch, got %x", sum))
	}

	entry, err := bootelf.Load(bytes.NewReader(image), user, bootelf.NewPhysMemory())
	if err != nil {
		kpanic.Halt(kpanic.AssertionFailure, fmt.Sprintf("elf: %v", err))
	}

	// The instruction that enables the MMU must keep fetching from the
	// same physical address immediately before and after it runs, so TTBR0
	// is first pointed at the identity overlay rather than straight at the
	// loaded image; only once paging is confirmed live is it swapped to
	// the address space the jumped-to code actually runs in.
	mmu := paging.NewController(&cpu)
	mmu.SetLower(overlay)
	mmu.SetUpper(supervisor)
	mmu.SetMode(true, true)
	mmu.Enable()
	mmu.SetLower(user)

	// Arm a reset in case the loaded image never reaches its own watchdog
	// handling; it is expected to call boardpi.Watchdog.Reset periodically
	// once running.
	boardpi.Watchdog.Start(watchdogTimeout)

	_ = r0
	_ = r1
	_ = savedCPSR

	jump(entry)
}

func main() {}
