// ARM Cortex-A Global and Generic timer support.
//
// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package arm

// nanoseconds
const refFreq int64 = 1000000000

// defined in timer_arm.s
func read_gtc() int64
func read_cntpct() int64
func Busyloop(int32)

// InitGlobalTimers configures the CPU to use the ARM Cortex-A9 global timer
// as its tick source.
func (cpu *CPU) InitGlobalTimers() {
	cpu.timerFn = read_gtc
	cpu.timerMultiplier = 10
}

// InitGenericTimers configures the CPU to use the ARM Cortex-A7 generic
// timer, running at timerFreq Hz, as its tick source.
func (cpu *CPU) InitGenericTimers(timerFreq int64) {
	cpu.timerMultiplier = refFreq / timerFreq
	cpu.timerFn = read_cntpct
}

// InitSpecificTimer configures the CPU to use an arbitrary tick source, such
// as a SoC-specific free-running system timer, running at timerFreq Hz.
func (cpu *CPU) InitSpecificTimer(tick func() int64, timerFreq int64) {
	cpu.timerMultiplier = refFreq / timerFreq
	cpu.timerFn = tick
}

// Nanotime returns the current time, in nanoseconds, as derived from the
// configured tick source. It panics if no timer has been initialized.
func (cpu *CPU) Nanotime() int64 {
	return cpu.timerFn() * cpu.timerMultiplier
}
