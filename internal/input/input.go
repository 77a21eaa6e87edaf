// Package input carries sampled user input from a frontend to the input loop.
package input

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

type Key int

const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeySpace
	KeyShift
	KeyEqual
	KeyMinus
	Key1
	Key2
	Key3
	Key4
	KeyQ
	KeyR
	KeyEscape
	NumKeys
)

var keyNames = [NumKeys]string{
	"w", "a", "s", "d", "space", "shift", "=", "-", "1", "2", "3", "4", "q", "r", "esc",
}

func (k Key) String() string {
	if k < 0 || k >= NumKeys {
		return "?"
	}
	return keyNames[k]
}

// ParseKey maps a key name as printed by String back to a Key.
func ParseKey(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name {
			return Key(k), true
		}
	}
	return 0, false
}

// Snapshot is the input state at one input tick. Keys and MouseLeft are
// levels; MouseDelta and Scroll accumulate since the previous sample.
type Snapshot struct {
	Keys       [NumKeys]bool
	MouseDelta mgl32.Vec2
	Scroll     float32
	MouseLeft  bool
	// Closed reports that the frontend wants to shut down.
	Closed bool
}

func (s Snapshot) Down(k Key) bool { return s.Keys[k] }

// With returns s with the given keys held.
func (s Snapshot) With(keys ...Key) Snapshot {
	for _, k := range keys {
		s.Keys[k] = true
	}
	return s
}

type Source interface {
	Sample() Snapshot
}

// Scripted replays a fixed sequence of snapshots, one per Sample. Once the
// script runs out it reports Closed.
type Scripted struct {
	mu     sync.Mutex
	frames []Snapshot
	next   int
}

func NewScripted(frames ...Snapshot) *Scripted {
	return &Scripted{frames: frames}
}

// Hold appends n copies of s to the script.
func (sc *Scripted) Hold(s Snapshot, n int) *Scripted {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i := 0; i < n; i++ {
		sc.frames = append(sc.frames, s)
	}
	return sc
}

func (sc *Scripted) Sample() Snapshot {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.next >= len(sc.frames) {
		return Snapshot{Closed: true}
	}
	s := sc.frames[sc.next]
	sc.next++
	return s
}

func (sc *Scripted) Remaining() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.frames) - sc.next
}

// Queue collects events from event-driven frontends. Tapped keys read as
// held for exactly one sample, for terminals that only report presses.
type Queue struct {
	mu     sync.Mutex
	held   [NumKeys]bool
	tapped [NumKeys]bool
	mouse  mgl32.Vec2
	scroll float32
	left   bool
	closed bool
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Press(k Key) {
	q.mu.Lock()
	q.held[k] = true
	q.mu.Unlock()
}

func (q *Queue) Release(k Key) {
	q.mu.Lock()
	q.held[k] = false
	q.mu.Unlock()
}

func (q *Queue) Tap(k Key) {
	q.mu.Lock()
	q.tapped[k] = true
	q.mu.Unlock()
}

func (q *Queue) MoveMouse(dx, dy float32) {
	q.mu.Lock()
	q.mouse = q.mouse.Add(mgl32.Vec2{dx, dy})
	q.mu.Unlock()
}

func (q *Queue) Scroll(d float32) {
	q.mu.Lock()
	q.scroll += d
	q.mu.Unlock()
}

func (q *Queue) SetMouseLeft(down bool) {
	q.mu.Lock()
	q.left = down
	q.mu.Unlock()
}

func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) Sample() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Snapshot{MouseDelta: q.mouse, Scroll: q.scroll, MouseLeft: q.left, Closed: q.closed}
	for k := range s.Keys {
		s.Keys[k] = q.held[k] || q.tapped[k]
	}
	q.tapped = [NumKeys]bool{}
	q.mouse = mgl32.Vec2{}
	q.scroll = 0
	return s
}
