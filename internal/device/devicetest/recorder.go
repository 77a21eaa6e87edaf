// Package devicetest provides a recording device backend for tests of code
// that drives kernels without caring what they compute.
package devicetest

import (
	"bytes"
	"sync"

	"github.com/san-kum/voxelsand/internal/device"
)

// Op names a recorded backend call.
type Op string

const (
	OpDispatchSim    Op = "sim"
	OpDispatchRender Op = "render"
	OpBarrier        Op = "barrier"
)

type Call struct {
	Op      Op
	Program device.Program
	Sim     device.SimUniforms
	Render  device.RenderUniforms
	Groups  int
}

// Recorder implements device.Backend by recording calls. Sources containing
// the word "broken" fail to compile.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// DispatchErr is returned by every dispatch while set.
	DispatchErr error
	Frame       *device.Frame
	Bound       device.Binding

	next  device.Program
	timer *device.HostTimer
}

func New() *Recorder {
	return &Recorder{timer: device.NewHostTimer(), Frame: device.NewFrame(4, 4)}
}

func (r *Recorder) Name() string                         { return "recorder" }
func (r *Recorder) Available() bool                      { return true }
func (r *Recorder) SourceName(k device.Kernel) string    { return k.String() + ".src" }
func (r *Recorder) DefaultSource(k device.Kernel) []byte { return []byte(k.String()) }
func (r *Recorder) Timer() device.Timer                  { return r.timer }
func (r *Recorder) Cleanup()                             {}

func (r *Recorder) Bind(b device.Binding) error {
	r.Bound = b
	r.Frame = device.NewFrame(b.Resolution[0], b.Resolution[1])
	return nil
}

func (r *Recorder) Compile(k device.Kernel, source []byte) device.Program {
	if bytes.Contains(source, []byte("broken")) {
		return device.InvalidProgram
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return r.next
}

func (r *Recorder) DispatchSim(p device.Program, u device.SimUniforms, groups int) error {
	if r.DispatchErr != nil {
		return r.DispatchErr
	}
	r.record(Call{Op: OpDispatchSim, Program: p, Sim: u, Groups: groups})
	return nil
}

func (r *Recorder) DispatchRender(p device.Program, u device.RenderUniforms) error {
	if r.DispatchErr != nil {
		return r.DispatchErr
	}
	r.record(Call{Op: OpDispatchRender, Program: p, Render: u})
	return nil
}

func (r *Recorder) Barrier() error {
	r.record(Call{Op: OpBarrier})
	return nil
}

func (r *Recorder) ReadFrame(dst *device.Frame) error {
	dst.CopyFrom(r.Frame)
	return nil
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Calls returns and clears the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

// Ops returns the recorded call kinds in order and clears the record.
func (r *Recorder) Ops() []Op {
	calls := r.Calls()
	ops := make([]Op, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}
