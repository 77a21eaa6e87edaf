package opengl

import (
	"time"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/san-kum/voxelsand/internal/device"
)

// Timer measures stages with GL_TIME_ELAPSED queries. A stage whose previous
// query has not resolved yet is skipped rather than waited on.
type Timer struct {
	queries [3]uint32
	pending [3]bool
	active  [3]bool
}

var stages = [3]device.Stage{device.StageSim, device.StageRender, device.StagePresent}

func newTimer() *Timer {
	t := &Timer{}
	gl.GenQueries(int32(len(t.queries)), &t.queries[0])
	return t
}

func (t *Timer) Begin(s device.Stage) {
	if t.pending[s] || t.active[s] {
		return
	}
	gl.BeginQuery(gl.TIME_ELAPSED, t.queries[s])
	t.active[s] = true
}

func (t *Timer) End(s device.Stage) {
	if !t.active[s] {
		return
	}
	gl.EndQuery(gl.TIME_ELAPSED)
	t.active[s] = false
	t.pending[s] = true
}

func (t *Timer) Poll() []device.Sample {
	var out []device.Sample
	for _, s := range stages {
		if !t.pending[s] {
			continue
		}
		var ready int32
		gl.GetQueryObjectiv(t.queries[s], gl.QUERY_RESULT_AVAILABLE, &ready)
		if ready == gl.FALSE {
			continue
		}
		var ns uint64
		gl.GetQueryObjectui64v(t.queries[s], gl.QUERY_RESULT, &ns)
		t.pending[s] = false
		out = append(out, device.Sample{Stage: s, Elapsed: time.Duration(ns)})
	}
	return out
}

func (t *Timer) release() {
	gl.DeleteQueries(int32(len(t.queries)), &t.queries[0])
}
