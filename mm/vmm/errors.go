// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vmm

import "errors"

var (
	ErrSomeBlocksNotFree      = errors.New("vmm: some blocks in the requested range are not free")
	ErrSomeBlocksNotReserved  = errors.New("vmm: some blocks in the requested range are not reserved")
	ErrSomeBlocksNotCommitted = errors.New("vmm: some blocks in the requested range are not committed")
	ErrOutOfBounds            = errors.New("vmm: address is outside this address space's window")
	ErrAddressNotMapped       = errors.New("vmm: address has no mapping")
	ErrMemorySpaceExhausted   = errors.New("vmm: no free range satisfies the reservation")
	ErrNotMappedAsPage        = errors.New("vmm: address is not mapped at page granularity")
	ErrNotMappedAsSection     = errors.New("vmm: address is not mapped at section granularity")
	ErrOutOfMemory            = errors.New("vmm: frame allocator has no memory left")
)
