// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package proc

import "testing"

func TestSpawnTracksThread(t *testing.T) {
	p := NewProcess(7, nil)

	th := p.Spawn(0x8000, 0x20000)

	if len(p.Threads) != 1 || p.Threads[0] != th {
		t.Fatalf("Spawn did not register the new thread on Process.Threads")
	}
	if th.Owner != p {
		t.Errorf("Thread.Owner = %v, want %v", th.Owner, p)
	}
	if th.Context.PC != 0x8000 || th.Context.SP != 0x20000 {
		t.Errorf("Context = %+v, want PC=0x8000 SP=0x20000", th.Context)
	}
}
