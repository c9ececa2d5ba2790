// Package scheduler drives automatic order completion. On every tick it
// scans for orders whose preparation window has elapsed and asks the
// lifecycle engine to complete them. A slow or failing order never delays
// the rest of the sweep, and a disabled scheduler leaves elapsed orders
// preparing (the kitchen view flags them as overdue instead).
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"qrdine-api/clock"
	"qrdine-api/lifecycle"
)

// DefaultPeriod matches the kitchen display refresh rate.
const DefaultPeriod = time.Second

// Engine is the slice of the lifecycle service the scheduler needs.
type Engine interface {
	DueOrderIDs(ctx context.Context, now time.Time) ([]string, error)
	AutoComplete(ctx context.Context, orderID string) error
}

type Scheduler struct {
	engine   Engine
	clk      clock.Clock
	period   time.Duration
	enabled  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func New(engine Engine, clk clock.Clock, period time.Duration) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	s := &Scheduler{
		engine: engine,
		clk:    clk,
		period: period,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.enabled.Store(true)
	return s
}

// SetEnabled toggles automatic completion globally. While disabled, elapsed
// orders stay preparing until an operator acts.
func (s *Scheduler) SetEnabled(on bool) {
	s.enabled.Store(on)
	log.Printf("scheduler: auto-completion enabled=%v", on)
}

func (s *Scheduler) Enabled() bool {
	return s.enabled.Load()
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ticks := s.clk.Tick(s.period)
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.quit:
				return
			case now := <-ticks:
				if !s.enabled.Load() {
					continue
				}
				s.sweep(ctx, now)
			}
		}
	}()
}

// Stop shuts down the tick loop and blocks until it has exited. Safe to
// call whether or not the Start context was cancelled first.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	s.clk.Stop()
	<-s.done
}

// sweep completes every due order concurrently; the per-order locking in
// the lifecycle engine makes this safe, and a slow transition for one order
// cannot delay evaluation of the others in the same tick.
func (s *Scheduler) sweep(ctx context.Context, now time.Time) {
	ids, err := s.engine.DueOrderIDs(ctx, now)
	if err != nil {
		// Transient store failure; next tick retries the whole scan
		log.Printf("scheduler: due-order scan failed: %v", err)
		return
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			if err := s.engine.AutoComplete(ctx, orderID); err != nil {
				if errors.Is(err, lifecycle.ErrInvalidTransition) {
					// A manual actor got there first; terminal state is sticky
					return
				}
				log.Printf("scheduler: auto-complete of order %s failed: %v", orderID, err)
			}
		}(id)
	}
	wg.Wait()
}
