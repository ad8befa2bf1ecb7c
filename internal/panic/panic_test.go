// https://github.com/armboot/kernel
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package panic

import (
	"strings"
	"testing"
	"time"
)

func TestCodeString(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{OutOfMemory, "out of memory"},
		{AddRefToUnallocatedPage, "attempted to add a reference to an unallocated page"},
		{ReleaseUnallocatedPage, "attempted to release an unallocated page"},
		{IncompatibleParameter, "incompatible parameter"},
		{AssertionFailure, "assertion failure"},
		{NonZeroBase, "system RAM not based at address 0"},
		{Code(99), "unknown panic code"},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			if got := c.code.String(); got != c.want {
				t.Errorf("String() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestRaisePanicsWithFault(t *testing.T) {
	defer func() {
		r := recover()
		f, ok := r.(Fault)
		if !ok {
			t.Fatalf("recovered %#v (%T), want Fault", r, r)
		}
		if f.Code != OutOfMemory || f.Msg != "no frames left" {
			t.Errorf("Fault = %+v, want {OutOfMemory, \"no frames left\"}", f)
		}
		if f.Error() == "" {
			t.Error("Fault.Error() returned empty string")
		}
	}()

	Raise(OutOfMemory, "no frames left")
}

func TestHaltReportsThenParks(t *testing.T) {
	defer func() {
		Sink = func(s string) { print(s) }
		Idle = func() { panic("unreachable") }
	}()

	reported := make(chan string, 1)
	idled := make(chan struct{}, 1)

	SetSink(func(s string) { reported <- s })
	SetIdle(func() {
		select {
		case idled <- struct{}{}:
		default:
		}
		<-make(chan struct{}) // park this goroutine, as the real Idle hook would park the core
	})

	go Halt(AssertionFailure, "refcount table corrupt")

	select {
	case msg := <-reported:
		if !strings.Contains(msg, "Kernel Panic") || !strings.Contains(msg, "refcount table corrupt") {
			t.Errorf("unexpected diagnostic: %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Halt never reported its diagnostic")
	}

	select {
	case <-idled:
	case <-time.After(time.Second):
		t.Fatal("Halt never reached the idle loop")
	}
}
