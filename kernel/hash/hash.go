// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hash digests the embedded kernel image before boot/elf loads it,
// so a corrupted or truncated blob is caught before any memory is
// committed on its behalf.
package hash

import "crypto/sha256"

// Digest is a SHA-256 sum.
type Digest [sha256.Size]byte

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}
