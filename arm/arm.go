// Package arm provides support for ARMv6/ARMv7 processor initialization,
// a functional equivalent of the C++ reference's board/cpu bring-up layer,
// adapted for Go bare-metal execution under GOOS=tamago.
//
// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package arm

// CPU represents an ARM core instance, grouping the register-level
// initialization and control primitives used during early bring-up.
type CPU struct {
	features features

	timerFn         func() int64
	timerMultiplier int64
}

// Init probes the processor feature registers. It must be called once,
// before any other CPU method, and only once the Go runtime scheduler is
// not yet relying on goroutine-unsafe register state.
func (cpu *CPU) Init() {
	cpu.features.init()
}
