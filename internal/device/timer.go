package device

import (
	"sync"
	"time"
)

// Stage names a timed part of a frame.
type Stage int

const (
	StageSim Stage = iota
	StageRender
	StagePresent
	numStages
)

func (s Stage) String() string {
	switch s {
	case StageSim:
		return "sim"
	case StageRender:
		return "render"
	case StagePresent:
		return "draw"
	default:
		return "stage"
	}
}

// Sample is one completed stage measurement.
type Sample struct {
	Stage   Stage
	Elapsed time.Duration
}

// Timer measures stages. Poll never blocks: results still pending on the
// device are returned by a later call.
type Timer interface {
	Begin(s Stage)
	End(s Stage)
	Poll() []Sample
}

// HostTimer measures stages with the host clock. It is exact for backends
// whose Barrier waits for completion.
type HostTimer struct {
	mu      sync.Mutex
	now     func() time.Time
	started [numStages]time.Time
	samples []Sample
}

func NewHostTimer() *HostTimer {
	return &HostTimer{now: time.Now}
}

func (t *HostTimer) Begin(s Stage) {
	t.mu.Lock()
	t.started[s] = t.now()
	t.mu.Unlock()
}

func (t *HostTimer) End(s Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started[s].IsZero() {
		return
	}
	t.samples = append(t.samples, Sample{Stage: s, Elapsed: t.now().Sub(t.started[s])})
	t.started[s] = time.Time{}
}

func (t *HostTimer) Poll() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.samples
	t.samples = nil
	return out
}
