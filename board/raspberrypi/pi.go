// Package pi provides basic abstraction for support of different models of
// Raspberry Pi single board computers.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm`.
//
// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package pi

// Board provides a basic abstraction over the different models of Pi.
type Board interface {
	LED(name string, on bool) (err error)
}
