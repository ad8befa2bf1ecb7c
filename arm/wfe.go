// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package arm

// defined in wfe.s
func wait_for_event()

// WaitForEvent issues a WFE (Wait For Event) instruction, parking the core
// in low power state until the next interrupt or event. Used to halt after
// an unrecoverable condition without spinning the core at full clock.
func (cpu *CPU) WaitForEvent() {
	wait_for_event()
}
