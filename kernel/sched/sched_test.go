// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import (
	"testing"

	"github.com/armboot/kernel/kernel/proc"
)

func TestNextRoundRobins(t *testing.T) {
	p := proc.NewProcess(1, nil)
	a := p.Spawn(0x1000, 0x8000)
	b := p.Spawn(0x2000, 0x9000)

	var s Stub
	s.Add(a)
	s.Add(b)

	order := []*proc.Thread{s.Next(), s.Next(), s.Next(), s.Next()}
	want := []*proc.Thread{a, b, a, b}

	for i := range order {
		if order[i] != want[i] {
			t.Errorf("Next() call %d = %p, want %p", i, order[i], want[i])
		}
	}
}

func TestNextEmptyIsNil(t *testing.T) {
	var s Stub
	if s.Next() != nil {
		t.Errorf("Next() on empty scheduler = non-nil")
	}
}

func TestRemoveDropsThread(t *testing.T) {
	p := proc.NewProcess(1, nil)
	a := p.Spawn(0x1000, 0x8000)
	b := p.Spawn(0x2000, 0x9000)

	var s Stub
	s.Add(a)
	s.Add(b)
	s.Remove(a)

	if got := s.Next(); got != b {
		t.Errorf("Next() after removing a = %p, want %p", got, b)
	}
	if got := s.Next(); got != b {
		t.Errorf("Next() after removing a = %p, want %p", got, b)
	}
}
