// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hash

import (
	"crypto/sha256"
	"testing"
)

func TestSum256MatchesStdlib(t *testing.T) {
	data := []byte("kernel image bytes")

	got := Sum256(data)
	want := sha256.Sum256(data)

	if got != Digest(want) {
		t.Errorf("Sum256(%q) = %x, want %x", data, got, want)
	}
}

func TestSum256DiffersOnChangedBytes(t *testing.T) {
	a := Sum256([]byte("image-v1"))
	b := Sum256([]byte("image-v2"))

	if a == b {
		t.Errorf("Sum256 collided on distinct inputs")
	}
}
