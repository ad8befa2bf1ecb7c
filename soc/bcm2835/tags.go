// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bcm2835

// VideoCore mailbox property channel, tag IDs and fixed response buffer
// sizes (in bytes) for the subset of the property interface this package
// exercises.
const (
	VC_CH_PROPERTYTAGS_A_TO_VC = 8

	VC_BOARD_GET_REV        = 0x00010002
	VC_BOARD_GET_REV_LEN    = 4
	VC_BOARD_GET_MODEL      = 0x00010001
	VC_BOARD_GET_MODEL_LEN  = 4
	VC_BOARD_GET_MAC        = 0x00010003
	VC_BOARD_GET_MAC_LEN    = 6
	VC_BOARD_GET_SERIAL     = 0x00010004
	VC_BOARD_GET_SERIAL_LEN = 4

	VC_BOARD_GET_ARM_MEMORY     = 0x00010005
	VC_BOARD_GET_ARM_MEMORY_LEN = 8
	VC_BOARD_GET_VC_MEMORY      = 0x00010006
	VC_BOARD_GET_VC_MEMORY_LEN  = 8

	VC_RES_GET_DMACHANNELS     = 0x00060001
	VC_RES_GET_DMACHANNELS_LEN = 4

	VC_MEM_ALLOCATE     = 0x0003000c
	VC_MEM_ALLOCATE_LEN = 12
	VC_MEM_LOCK         = 0x0003000d
	VC_MEM_LOCK_LEN     = 4
)

// WatchdogPeriod is the tick period, in nanoseconds, of the BCM2835 power
// management watchdog counter (a free-running 16-bit counter clocked at
// 65536 Hz).
const WatchdogPeriod = 1000000000 / 65536
