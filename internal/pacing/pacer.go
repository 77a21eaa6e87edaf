// Package pacing holds loops to a target rate.
package pacing

import "time"

// Pacer sleeps away whatever is left of a fixed period. It does not try to
// catch up after a slow tick.
type Pacer struct {
	period time.Duration
	last   time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func New(hz float64) *Pacer {
	return newPacer(hz, time.Now, time.Sleep)
}

func newPacer(hz float64, now func() time.Time, sleep func(time.Duration)) *Pacer {
	var period time.Duration
	if hz > 0 {
		period = time.Duration(float64(time.Second) / hz)
	}
	return &Pacer{period: period, now: now, sleep: sleep, last: now()}
}

func (p *Pacer) Period() time.Duration { return p.period }

// Tick waits until one period has passed since the previous tick and returns
// the time since that tick, including the wait.
func (p *Pacer) Tick() time.Duration {
	if rest := p.period - p.now().Sub(p.last); rest > 0 {
		p.sleep(rest)
	}
	t := p.now()
	dt := t.Sub(p.last)
	p.last = t
	return dt
}
