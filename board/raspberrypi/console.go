// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
//
//go:build !linkprintk

package pi

import (
	_ "unsafe"

	"github.com/armboot/kernel/soc/bcm2835"
)

//go:linkname printk runtime.printk
func printk(c byte) {
	bcm2835.MiniUART.Tx(c)
}
