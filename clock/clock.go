package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock sampling and periodic ticking so the
// auto-completion scheduler can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	Tick(d time.Duration) <-chan time.Time
	Stop()
}

type realClock struct {
	mu      sync.Mutex
	tickers []*time.Ticker
}

// Real returns a Clock backed by time.Now and time.Ticker.
func Real() Clock {
	return &realClock{}
}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func (c *realClock) Tick(d time.Duration) <-chan time.Time {
	t := time.NewTicker(d)
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t.C
}

func (c *realClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tickers {
		t.Stop()
	}
	c.tickers = nil
}

// Fake is a manually-advanced Clock for tests.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start, ticks: make(chan time.Time, 16)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Tick(time.Duration) <-chan time.Time {
	return f.ticks
}

func (f *Fake) Stop() {}

// Set moves the clock to an absolute instant without ticking.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward and delivers one tick at the new time.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	f.mu.Unlock()
	f.ticks <- now
}
