// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package proc holds the process and thread containers the scheduler
// round-robins over. Neither preempts nor context-switches on its own —
// that belongs to whatever drives kernel/sched, which this repo leaves as
// a cooperative stub.
package proc

import "github.com/armboot/kernel/mm/vmm"

// Context is a thread's saved general-purpose register file plus its
// program counter and processor status, in ARM register-number order
// (r0-r12, sp, lr, pc, cpsr).
type Context struct {
	R    [13]uint32
	SP   uint32
	LR   uint32
	PC   uint32
	CPSR uint32
}

// Process owns one address space and the threads running inside it.
type Process struct {
	ID      uint32
	Space   *vmm.AddressSpace
	Threads []*Thread
}

// NewProcess wraps a previously-constructed address space as a process.
func NewProcess(id uint32, space *vmm.AddressSpace) *Process {
	return &Process{ID: id, Space: space}
}

// Spawn creates a new thread belonging to this process with the given
// entry point and stack pointer, and tracks it in Threads.
func (p *Process) Spawn(entry, stack uint32) *Thread {
	t := &Thread{Owner: p, Context: Context{PC: entry, SP: stack}}
	p.Threads = append(p.Threads, t)
	return t
}

// Thread is one schedulable unit of execution within a Process.
type Thread struct {
	Owner   *Process
	Context Context
}
