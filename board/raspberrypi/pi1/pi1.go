// Package pi1 provides hardware initialization, automatically on import,
// for the Raspberry Pi 1 single board computer.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm`.
//
// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package pi1

import (
	_ "unsafe"

	"github.com/armboot/kernel/board/raspberrypi"
	"github.com/armboot/kernel/soc/bcm2835"
)

const peripheralBase = 0x20000000

type board struct{}

// Board provides access to the capabilities of the Pi 1.
var Board pi.Board = &board{}

// Init takes care of the lower level SoC initialization triggered early in
// runtime setup.
//
//go:linkname Init runtime.hwinit
func Init() {
	// Defer to generic BCM2835 initialization, with Pi 1
	// peripheral base address.
	bcm2835.HardwareInit(peripheralBase)
}
