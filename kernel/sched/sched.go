// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sched is a cooperative round-robin scheduler stub: no
// preemption, no priorities, no SMP — those are explicitly out of scope.
// It exists so kernel/proc's threads have somewhere to be enqueued while
// the rest of the kernel is bring-up only.
package sched

import "github.com/armboot/kernel/kernel/proc"

// Stub round-robins a fixed list of threads, advancing one slot per Next
// call. It never blocks and never removes a thread on its own; callers
// remove a finished thread with Remove.
type Stub struct {
	threads []*proc.Thread
	cursor  int
}

// Add enqueues t to the run list.
func (s *Stub) Add(t *proc.Thread) {
	s.threads = append(s.threads, t)
}

// Remove drops t from the run list, if present.
func (s *Stub) Remove(t *proc.Thread) {
	for i, cur := range s.threads {
		if cur == t {
			s.threads = append(s.threads[:i], s.threads[i+1:]...)
			if s.cursor > i {
				s.cursor--
			}
			return
		}
	}
}

// Next returns the next thread to run, or nil if the run list is empty.
// Each call advances the cursor by one slot, wrapping around.
func (s *Stub) Next() *proc.Thread {
	if len(s.threads) == 0 {
		return nil
	}

	t := s.threads[s.cursor%len(s.threads)]
	s.cursor++
	return t
}
