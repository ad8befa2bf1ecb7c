// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vmm

// BlockState is the observable state of one unit of address space.
type BlockState int

const (
	Free BlockState = iota
	Reserved
	Committed
)

func (s BlockState) String() string {
	switch s {
	case Free:
		return "free"
	case Reserved:
		return "reserved"
	case Committed:
		return "committed"
	default:
		return "invalid"
	}
}

// multiBlockState is the conjunction of the three per-state predicates over
// a range: "are all blocks in this range Free?" and so on. Its and is
// associative and commutative, so a range's state can be folded one block
// at a time in any order.
type multiBlockState struct {
	free, reserved, committed bool
}

func multiBlockStateOf(s BlockState) multiBlockState {
	return multiBlockState{
		free:      s == Free,
		reserved:  s == Reserved,
		committed: s == Committed,
	}
}

func (m multiBlockState) and(o multiBlockState) multiBlockState {
	return multiBlockState{
		free:      m.free && o.free,
		reserved:  m.reserved && o.reserved,
		committed: m.committed && o.committed,
	}
}
