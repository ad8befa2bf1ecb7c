// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build tamago && arm

package arm

// defined in cpsr.s
func read_cpsr() uint32
